package mongo

import (
	"context"
	"errors"
	"fmt"

	"leaderboard/internal/models"
	"leaderboard/internal/ranking"
	"leaderboard/internal/repositories"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection    = "users"
	historyCollection  = "claim_history"
	countersCollection = "counters"
)

// insertionOrder sorts users the way they were created. createdAt only keeps
// milliseconds, so the allocated seq is the tie breaker.
var insertionOrder = bson.D{{Key: "seq", Value: 1}}

type counter struct {
	Seq uint `bson:"seq"`
}

// Store keeps users and claim history in MongoDB. Mutations run inside
// multi-document transactions, which need a replica set or sharded cluster.
type Store struct {
	client   *mongo.Client
	users    *mongo.Collection
	history  *mongo.Collection
	counters *mongo.Collection
}

// NewStore wires the collections and ensures their indexes.
func NewStore(ctx context.Context, c *Client) (*Store, error) {
	db, err := c.DB()
	if err != nil {
		return nil, err
	}

	s := &Store{
		client:   c.raw,
		users:    db.Collection(usersCollection),
		history:  db.Collection(historyCollection),
		counters: db.Collection(countersCollection),
	}

	// collections cannot always be created implicitly inside a transaction
	for _, name := range []string{usersCollection, historyCollection, countersCollection} {
		if err := ensureCollection(ctx, db, name); err != nil {
			return nil, err
		}
	}

	_, err = s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "nameKey", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "rank", Value: 1}}},
		{Keys: insertionOrder},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user indexes: %w", err)
	}
	_, err = s.history.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "timestamp", Value: -1}, {Key: "seq", Value: -1}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create history indexes: %w", err)
	}
	return s, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "rank", Value: 1}, {Key: "seq", Value: 1}})
	return s.findUsers(ctx, opts)
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	var u models.User
	err := s.users.FindOne(ctx, bson.M{"_id": userID}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repositories.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.withTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		err := s.users.FindOne(sc, bson.M{"nameKey": user.NameKey}).Err()
		if err == nil {
			return nil, repositories.ErrDuplicateName
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}

		seq, err := s.nextSeq(sc, usersCollection)
		if err != nil {
			return nil, err
		}
		user.Seq = seq

		if _, err := s.users.InsertOne(sc, user); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, repositories.ErrDuplicateName
			}
			return nil, err
		}

		ranked, err := s.rerank(sc)
		if err != nil {
			return nil, err
		}
		for _, u := range ranked {
			if u.ID == user.ID {
				user.Rank = u.Rank
			}
		}
		return nil, nil
	})
	return err
}

// ClaimPoints increments the total with $inc and rewrites ranks in one
// transaction so concurrent claims cannot overwrite each other.
func (s *Store) ClaimPoints(ctx context.Context, userID string, points int, entry *models.ClaimHistory) (*models.User, error) {
	result, err := s.withTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
		var updated models.User
		err := s.users.FindOneAndUpdate(sc, bson.M{"_id": userID}, bson.M{"$inc": bson.M{"totalPoints": points}}, opts).Decode(&updated)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrUserNotFound
		}
		if err != nil {
			return nil, err
		}

		ranked, err := s.rerank(sc)
		if err != nil {
			return nil, err
		}
		for _, u := range ranked {
			if u.ID == userID {
				updated = u
			}
		}

		seq, err := s.nextSeq(sc, historyCollection)
		if err != nil {
			return nil, err
		}
		entry.Seq = seq
		entry.UserID = updated.ID
		entry.UserName = updated.Name
		if _, err := s.history.InsertOne(sc, entry); err != nil {
			return nil, err
		}
		return &updated, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.User), nil
}

func (s *Store) ListHistory(ctx context.Context, limit int) ([]models.ClaimHistory, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "seq", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.history.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.ClaimHistory{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) withTransaction(ctx context.Context, fn func(mongo.SessionContext) (interface{}, error)) (interface{}, error) {
	sess, err := s.client.StartSession()
	if err != nil {
		return nil, err
	}
	defer sess.EndSession(ctx)
	return sess.WithTransaction(ctx, fn)
}

// rerank recomputes every rank from insertion order and writes the changed ones.
func (s *Store) rerank(ctx context.Context) ([]models.User, error) {
	users, err := s.findUsers(ctx, options.Find().SetSort(insertionOrder))
	if err != nil {
		return nil, err
	}

	ranked, writes := rankWrites(users)
	if len(writes) > 0 {
		if _, err := s.users.BulkWrite(ctx, writes); err != nil {
			return nil, err
		}
	}
	return ranked, nil
}

// nextSeq allocates the next value of the named counter. Inside a transaction
// the counter document stays write-locked until commit, so values are handed
// out in commit order.
func (s *Store) nextSeq(ctx context.Context, name string) (uint, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var c counter
	err := s.counters.FindOneAndUpdate(ctx, bson.M{"_id": name}, bson.M{"$inc": bson.M{"seq": 1}}, opts).Decode(&c)
	if err != nil {
		return 0, fmt.Errorf("allocate %s seq: %w", name, err)
	}
	return c.Seq, nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string) error {
	err := db.CreateCollection(ctx, name)
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Name == "NamespaceExists" {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	return nil
}

func (s *Store) findUsers(ctx context.Context, opts *options.FindOptions) ([]models.User, error) {
	cur, err := s.users.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	users := []models.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// rankWrites ranks users (given in insertion order) and builds one update per
// user whose stored rank changed.
func rankWrites(users []models.User) ([]models.User, []mongo.WriteModel) {
	ranked := ranking.Assign(users)
	changed := ranking.Changed(users, ranked)

	writes := make([]mongo.WriteModel, 0, len(changed))
	for _, u := range ranked {
		rank, ok := changed[u.ID]
		if !ok {
			continue
		}
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": u.ID}).
			SetUpdate(bson.M{"$set": bson.M{"rank": rank}}))
	}
	return ranked, writes
}
