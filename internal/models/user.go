package models

import "time"

// User is a leaderboard participant.
type User struct {
	// Seq preserves insertion order so rank ties stay stable.
	Seq         uint      `gorm:"primaryKey;autoIncrement" json:"-" bson:"seq"`
	ID          string    `gorm:"uniqueIndex;not null" json:"id" bson:"_id"`
	Name        string    `gorm:"not null" json:"name" bson:"name"`
	NameKey     string    `gorm:"uniqueIndex;not null" json:"-" bson:"nameKey"`
	TotalPoints int       `gorm:"not null;default:0" json:"totalPoints" bson:"totalPoints"`
	Rank        int       `gorm:"not null;default:0" json:"rank" bson:"rank"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
}

func (User) TableName() string {
	return "users"
}
