package stream

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	logger "github.com/sirupsen/logrus"

	"portfoliotracker/src/model"
)

// RedisRelay publishes snapshot events on a redis channel so that every
// server process delivers them to its own websocket subscribers.
type RedisRelay struct {
	rdb     *redis.Client
	channel string
	hub     *Hub
}

func NewRedisRelay(rdb *redis.Client, channel string, hub *Hub) *RedisRelay {
	return &RedisRelay{rdb: rdb, channel: channel, hub: hub}
}

// Publish implements ledger.Publisher. If redis is unreachable the event is
// still delivered to the subscribers of this process.
func (r *RedisRelay) Publish(portfolioID int64, assetID string, snapshot model.PositionSnapshot) {
	event := Event{PortfolioID: portfolioID, AssetID: assetID, Snapshot: snapshot, At: time.Now().UTC()}

	payload, err := json.Marshal(event)
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = r.rdb.Publish(ctx, r.channel, payload).Err()
		cancel()
	}
	if err != nil {
		logger.WithError(err).WithField("channel", r.channel).Warn("Failed to relay snapshot, delivering locally")
		r.hub.Deliver(event)
	}
}

// Run forwards relayed events to the local hub until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) error {
	pubsub := r.rdb.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	logger.WithField("channel", r.channel).Info("Snapshot relay subscribed")

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				logger.WithError(err).Warn("Dropping malformed relayed snapshot")
				continue
			}
			r.hub.Deliver(event)
		}
	}
}
