package testhelpers

import (
	"fmt"
	"strings"
	"testing"

	"leaderboard/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var (
	openSQLite = func(dsn string) (*gorm.DB, error) {
		return gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	}
	migrateSchema   = func(db *gorm.DB) error { return db.AutoMigrate(&models.User{}, &models.ClaimHistory{}) }
	dropUserTableFn = func(db *gorm.DB) error { return db.Migrator().DropTable(&models.User{}) }
)

// SetupTestDB creates an isolated in-memory SQLite database for tests.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := openSQLite(dsn)
	if err != nil {
		panic(fmt.Sprintf("failed to open test database: %v", err))
	}
	if err := migrateSchema(db); err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}
	sqlDB, err := db.DB()
	if err == nil {
		// a single connection keeps the shared in-memory database alive and
		// serialises transactions
		sqlDB.SetMaxOpenConns(1)
		t.Cleanup(func() { sqlDB.Close() })
	}
	return db
}

// DropUserTable removes the users table to force repository errors.
func DropUserTable(t *testing.T, db *gorm.DB) {
	t.Helper()
	if err := dropUserTableFn(db); err != nil {
		panic(fmt.Sprintf("failed to drop user table: %v", err))
	}
}
