package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"leaderboard/internal/models"
)

// Sink receives events decoded from the channel.
type Sink interface {
	Broadcast(event models.LeaderboardEvent)
}

// Subscriber forwards events published by any instance to the local sink.
type Subscriber struct {
	rdb        *redis.Client
	sink       Sink
	logger     *zap.Logger
	instanceID string
}

func NewSubscriber(rdb *redis.Client, sink Sink, logger *zap.Logger) *Subscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Subscriber{
		rdb:        rdb,
		sink:       sink,
		logger:     logger,
		instanceID: uuid.New().String()[:8],
	}
}

// Start subscribes, waits for the broker to confirm and then consumes in the
// background until ctx is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	pubsub := s.rdb.Subscribe(ctx, Channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("subscribe %s: %w", Channel, err)
	}
	s.logger.Info("subscribed to leaderboard events", zap.String("channel", Channel), zap.String("instance", s.instanceID))

	go s.consume(ctx, pubsub)
	return nil
}

func (s *Subscriber) consume(ctx context.Context, pubsub *redis.PubSub) {
	defer pubsub.Close()
	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			s.handle(msg.Payload)
		}
	}
}

func (s *Subscriber) handle(payload string) {
	var event models.LeaderboardEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		s.logger.Warn("failed to unmarshal leaderboard event", zap.String("instance", s.instanceID), zap.Error(err))
		return
	}
	s.sink.Broadcast(event)
}
