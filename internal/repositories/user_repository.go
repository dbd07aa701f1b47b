package repositories

import (
	"context"
	"errors"

	"leaderboard/internal/models"
	"leaderboard/internal/ranking"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	DB *gorm.DB
}

// ListUsers returns every user ordered by rank, ties by insertion order.
func (r *UserRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	err := r.DB.WithContext(ctx).Order("rank ASC").Order("seq ASC").Find(&users).Error
	return users, err
}

func (r *UserRepository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts user and recomputes every rank in the same transaction.
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users, err := lockUsers(tx)
		if err != nil {
			return err
		}
		for _, existing := range users {
			if existing.NameKey == user.NameKey {
				return ErrDuplicateName
			}
		}

		if err := tx.Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateName
			}
			return err
		}

		ranked, err := rerank(tx, append(users, *user))
		if err != nil {
			return err
		}
		for _, u := range ranked {
			if u.ID == user.ID {
				user.Rank = u.Rank
			}
		}
		return nil
	})
}

// ClaimPoints adds points to the user's total, recomputes ranks and appends entry
// as one transaction. The user rows stay locked for the whole unit so concurrent
// claims cannot lose updates.
func (r *UserRepository) ClaimPoints(ctx context.Context, userID string, points int, entry *models.ClaimHistory) (*models.User, error) {
	var claimed models.User
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users, err := lockUsers(tx)
		if err != nil {
			return err
		}

		idx := -1
		for i := range users {
			if users[i].ID == userID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrUserNotFound
		}

		result := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Update("total_points", gorm.Expr("total_points + ?", points))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}
		users[idx].TotalPoints += points

		ranked, err := rerank(tx, users)
		if err != nil {
			return err
		}
		for _, u := range ranked {
			if u.ID == userID {
				claimed = u
			}
		}

		entry.UserID = claimed.ID
		entry.UserName = claimed.Name
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, err
	}
	return &claimed, nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// lockUsers takes the users table lock and then loads all users in insertion
// order. Row locks alone cannot stop a concurrent insert, so PostgreSQL takes a
// self-conflicting table lock first; later statements in the transaction then
// see every committed user. SQLite serialises writers itself.
func lockUsers(tx *gorm.DB) ([]models.User, error) {
	if stmt := tableLockSQL(tx.Dialector.Name()); stmt != "" {
		if err := tx.Exec(stmt).Error; err != nil {
			return nil, err
		}
	}
	users := []models.User{}
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Order("seq ASC").Find(&users).Error
	return users, err
}

// SHARE ROW EXCLUSIVE conflicts with itself and with every write, but not with
// plain reads, so ListUsers keeps working while a mutation holds it.
func tableLockSQL(dialect string) string {
	if dialect == "postgres" {
		return "LOCK TABLE users IN SHARE ROW EXCLUSIVE MODE"
	}
	return ""
}

func rerank(tx *gorm.DB, users []models.User) ([]models.User, error) {
	ranked := ranking.Assign(users)
	for id, rank := range ranking.Changed(users, ranked) {
		if err := tx.Model(&models.User{}).Where("id = ?", id).Update("rank", rank).Error; err != nil {
			return nil, err
		}
	}
	return ranked, nil
}
