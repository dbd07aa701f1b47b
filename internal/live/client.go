package live

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"leaderboard/internal/models"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 16
)

// Client owns one websocket connection. Events are queued by Send and
// written by writePump, so a slow peer never blocks the publisher.
type Client struct {
	Conn *websocket.Conn

	send      chan models.LeaderboardEvent
	done      chan struct{}
	closeOnce sync.Once

	mu   sync.Mutex
	hook func(models.LeaderboardEvent)
}

func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		Conn: conn,
		send: make(chan models.LeaderboardEvent, sendBuffer),
		done: make(chan struct{}),
	}
}

// SetSendHook replaces the send queue with a direct call (used in tests).
func (c *Client) SetSendHook(fn func(models.LeaderboardEvent)) {
	c.mu.Lock()
	c.hook = fn
	c.mu.Unlock()
}

// Send queues the event without blocking. It reports false when the client is
// closed or its queue is full.
func (c *Client) Send(event models.LeaderboardEvent) bool {
	c.mu.Lock()
	hook := c.hook
	c.mu.Unlock()
	if hook != nil {
		hook(event)
		return true
	}

	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- event:
		return true
	default:
		return false
	}
}

// writePump is the only writer on Conn.
func (c *Client) writePump() {
	for {
		select {
		case <-c.done:
			return
		case event := <-c.send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteJSON(event); err != nil {
				c.Close()
				return
			}
		}
	}
}

// Close stops the writer and closes the connection. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.Conn != nil {
			c.Conn.Close()
		}
	})
}
