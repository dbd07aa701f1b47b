package models

import "time"

const (
	EventUserCreated   = "user_created"
	EventPointsClaimed = "points_claimed"
)

// LeaderboardEvent is pushed to live subscribers after every successful mutation.
type LeaderboardEvent struct {
	Type          string        `json:"type"`
	User          *User         `json:"user"`
	History       *ClaimHistory `json:"history,omitempty"`
	PointsAwarded int           `json:"pointsAwarded,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}
