package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/core/domain"
)

const publishTimeout = 2 * time.Second

// RedisNotifier publishes events on a Redis pub/sub channel. The Discord
// presentation process subscribes on the same channel and renders the
// embeds. Delivery is fire-and-forget; a dropped event never fails a trade.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	log     *logrus.Logger
}

func NewRedisNotifier(ctx context.Context, addr, channel string, log *logrus.Logger) (*RedisNotifier, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisNotifier{client: client, channel: channel, log: log}, nil
}

func (n *RedisNotifier) Close() error {
	return n.client.Close()
}

func (n *RedisNotifier) Stage(ctx context.Context, discordUserID string, stage domain.Stage, detail string) {
	n.publish(ctx, stageEvent(discordUserID, stage, detail))
}

func (n *RedisNotifier) TradeExecuted(ctx context.Context, rec *domain.TradeRecord) {
	n.publish(ctx, executedEvent(rec))
}

func (n *RedisNotifier) PnLComputed(ctx context.Context, rec *domain.TradeRecord, report *domain.PnLReport) {
	n.publish(ctx, pnlEventFor(rec, report))
}

func (n *RedisNotifier) publish(ctx context.Context, ev event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		n.log.WithError(err).Warn("failed to encode event")
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		n.log.WithError(err).WithField("kind", ev.Kind).Warn("failed to publish event")
	}
}
