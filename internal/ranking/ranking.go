// Package ranking orders users by points and assigns their positions.
package ranking

import (
	"sort"

	"leaderboard/internal/models"
)

// Assign returns a copy of users sorted by TotalPoints descending with Rank set to
// each user's 1-based position. Users with equal points keep their input order, so
// callers pass users in insertion order.
func Assign(users []models.User) []models.User {
	ranked := make([]models.User, len(users))
	copy(ranked, users)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalPoints > ranked[j].TotalPoints
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// Changed maps user ID to new rank for every user whose rank differs between the
// stored rows and the ranked result.
func Changed(stored, ranked []models.User) map[string]int {
	previous := make(map[string]int, len(stored))
	for _, u := range stored {
		previous[u.ID] = u.Rank
	}

	changed := make(map[string]int)
	for _, u := range ranked {
		if old, ok := previous[u.ID]; !ok || old != u.Rank {
			changed[u.ID] = u.Rank
		}
	}
	return changed
}
