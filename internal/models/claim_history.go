package models

import "time"

// ClaimHistory records one completed claim. Entries are never modified.
type ClaimHistory struct {
	Seq           uint      `gorm:"primaryKey;autoIncrement" json:"-" bson:"seq"`
	ID            string    `gorm:"uniqueIndex;not null" json:"id" bson:"_id"`
	UserID        string    `gorm:"not null;index" json:"userId" bson:"userId"`
	UserName      string    `gorm:"not null" json:"userName" bson:"userName"`
	PointsAwarded int       `gorm:"not null" json:"pointsAwarded" bson:"pointsAwarded"`
	Timestamp     time.Time `gorm:"not null;index" json:"timestamp" bson:"timestamp"`
}

func (ClaimHistory) TableName() string {
	return "claim_history"
}
