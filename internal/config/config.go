package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMongo    = "mongo"
)

type PostgresConfig struct {
	Host     string `yaml:"host"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DB       string `yaml:"db"`
	Port     string `yaml:"port"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN renders the keyword/value connection string the postgres driver expects.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		p.Host, p.User, p.Password, p.DB, p.Port, p.SSLMode)
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type SnapshotConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
	Dir      string `yaml:"dir"`
}

type Config struct {
	Port               string         `yaml:"port"`
	StoreBackend       string         `yaml:"storeBackend"`
	Postgres           PostgresConfig `yaml:"postgres"`
	SQLitePath         string         `yaml:"sqlitePath"`
	Mongo              MongoConfig    `yaml:"mongo"`
	RedisAddr          string         `yaml:"redisAddr"`
	LiveUpdates        bool           `yaml:"liveUpdates"`
	CORSAllowedOrigins []string       `yaml:"corsAllowedOrigins"`
	SeedDefaultUsers   bool           `yaml:"seedDefaultUsers"`
	Snapshot           SnapshotConfig `yaml:"snapshot"`
}

func defaultConfig() *Config {
	return &Config{
		Port:         "8080",
		StoreBackend: BackendMemory,
		Postgres: PostgresConfig{
			Host:     "localhost",
			User:     "postgres",
			Password: "postgres",
			DB:       "leaderboard",
			Port:     "5432",
			SSLMode:  "disable",
		},
		SQLitePath:         "leaderboard.db",
		Mongo:              MongoConfig{Database: "leaderboard"},
		LiveUpdates:        true,
		CORSAllowedOrigins: []string{"http://localhost:5173"},
		SeedDefaultUsers:   true,
		Snapshot: SnapshotConfig{
			Schedule: "0 * * * *",
			Dir:      "./snapshots",
		},
	}
}

// LoadConfig applies defaults, then the YAML file named by LEADERBOARD_CONFIG,
// then environment variables.
func LoadConfig() (*Config, error) {
	config := defaultConfig()

	if path := os.Getenv("LEADERBOARD_CONFIG"); path != "" {
		if err := loadFile(path, config); err != nil {
			return nil, err
		}
	}

	applyEnv(config)

	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

func loadFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(config *Config) {
	config.Port = getEnvOrDefault("PORT", config.Port)
	config.StoreBackend = strings.ToLower(getEnvOrDefault("STORE_BACKEND", config.StoreBackend))

	config.Postgres.Host = getEnvOrDefault("POSTGRES_HOST", config.Postgres.Host)
	config.Postgres.User = getEnvOrDefault("POSTGRES_USER", config.Postgres.User)
	config.Postgres.Password = getEnvOrDefault("POSTGRES_PASSWORD", config.Postgres.Password)
	config.Postgres.DB = getEnvOrDefault("POSTGRES_DB", config.Postgres.DB)
	config.Postgres.Port = getEnvOrDefault("POSTGRES_PORT", config.Postgres.Port)
	config.Postgres.SSLMode = getEnvOrDefault("POSTGRES_SSLMODE", config.Postgres.SSLMode)

	config.SQLitePath = getEnvOrDefault("SQLITE_PATH", config.SQLitePath)
	config.Mongo.URI = getEnvOrDefault("MONGO_URI", config.Mongo.URI)
	config.Mongo.Database = getEnvOrDefault("MONGO_DB", config.Mongo.Database)
	config.RedisAddr = getEnvOrDefault("REDIS_ADDR", config.RedisAddr)
	config.LiveUpdates = getEnvBool("LIVE_UPDATES", config.LiveUpdates)

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		config.CORSAllowedOrigins = splitList(origins)
	}

	config.SeedDefaultUsers = getEnvBool("SEED_DEFAULT_USERS", config.SeedDefaultUsers)
	config.Snapshot.Enabled = getEnvBool("SNAPSHOT_ENABLED", config.Snapshot.Enabled)
	config.Snapshot.Schedule = getEnvOrDefault("SNAPSHOT_SCHEDULE", config.Snapshot.Schedule)
	config.Snapshot.Dir = getEnvOrDefault("SNAPSHOT_DIR", config.Snapshot.Dir)
}

func validateConfig(config *Config) error {
	switch config.StoreBackend {
	case BackendMemory, BackendPostgres, BackendSQLite:
	case BackendMongo:
		if config.Mongo.URI == "" {
			return errors.New("MONGO_URI is required for the mongo store backend")
		}
	default:
		return errors.New("unsupported store backend: " + config.StoreBackend + ". Currently supported: memory, postgres, sqlite, mongo")
	}
	if config.Port == "" {
		return errors.New("port must not be empty")
	}
	if config.Snapshot.Enabled && config.Snapshot.Dir == "" {
		return errors.New("snapshot directory is required when snapshots are enabled")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
