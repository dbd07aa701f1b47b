package live

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leaderboard/internal/models"
)

func TestBroadcastUsesSendHook(t *testing.T) {
	hub := NewHub(nil)
	received := make([]models.LeaderboardEvent, 0)
	client := NewClient(nil)
	client.SetSendHook(func(e models.LeaderboardEvent) { received = append(received, e) })
	hub.Add(client)

	err := hub.Publish(context.Background(), models.LeaderboardEvent{Type: models.EventUserCreated})

	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, models.EventUserCreated, received[0].Type)

	hub.Remove(client)
	hub.Broadcast(models.LeaderboardEvent{Type: models.EventPointsClaimed})
	assert.Len(t, received, 1)
}

func TestServeWSDeliversEvents(t *testing.T) {
	hub := NewHub(nil)
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 10*time.Millisecond)

	user := &models.User{ID: "u1", Name: "Neha", TotalPoints: 7, Rank: 1}
	hub.Broadcast(models.LeaderboardEvent{Type: models.EventPointsClaimed, User: user, PointsAwarded: 7})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got models.LeaderboardEvent
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, models.EventPointsClaimed, got.Type)
	assert.Equal(t, 7, got.PointsAwarded)
	require.NotNil(t, got.User)
	assert.Equal(t, "Neha", got.User.Name)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Count() == 0 }, time.Second, 10*time.Millisecond)
}

func TestBroadcastDropsClientWithFullQueue(t *testing.T) {
	hub := NewHub(nil)
	// no writer drains this client, like a peer that stopped reading
	stalled := NewClient(nil)
	hub.Add(stalled)

	var delivered int
	healthy := NewClient(nil)
	healthy.SetSendHook(func(models.LeaderboardEvent) { delivered++ })
	hub.Add(healthy)

	start := time.Now()
	for i := 0; i <= sendBuffer; i++ {
		hub.Broadcast(models.LeaderboardEvent{Type: models.EventPointsClaimed, PointsAwarded: i})
	}

	assert.Less(t, time.Since(start), writeWait, "broadcast must not wait on a stalled client")
	assert.Equal(t, 1, hub.Count())
	assert.Equal(t, sendBuffer+1, delivered)
	assert.False(t, stalled.Send(models.LeaderboardEvent{}), "closed client must refuse events")
}

func TestClientCloseIsIdempotent(t *testing.T) {
	client := NewClient(nil)

	assert.True(t, client.Send(models.LeaderboardEvent{Type: models.EventUserCreated}))
	client.Close()
	client.Close()

	assert.False(t, client.Send(models.LeaderboardEvent{Type: models.EventUserCreated}))
}
