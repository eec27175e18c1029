package worker

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/service-desk/internal/catalog"
)

// Reloader swaps in a fresh configuration snapshot.
type Reloader interface {
	Reload(ctx context.Context) (*catalog.Snapshot, error)
}

// CatalogRefresher reloads the configuration snapshot on a timer and whenever
// an invalidation message arrives on the Redis channel.
type CatalogRefresher struct {
	provider Reloader
	client   *redis.Client
	channel  string
	interval time.Duration
	logger   *zap.Logger
}

// NewCatalogRefresher builds the worker. Without a Redis client only the
// timer triggers reloads.
func NewCatalogRefresher(provider Reloader, client *redis.Client, channel string, interval time.Duration, logger *zap.Logger) *CatalogRefresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &CatalogRefresher{
		provider: provider,
		client:   client,
		channel:  channel,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled.
func (r *CatalogRefresher) Run(ctx context.Context) error {
	var messages <-chan *redis.Message
	if r.client != nil && r.channel != "" {
		pubsub := r.client.Subscribe(ctx, r.channel)
		defer pubsub.Close()
		messages = pubsub.Channel()
		r.logger.Info("listening for catalog invalidations", zap.String("channel", r.channel))
	} else {
		r.logger.Info("redis not available; catalog reloads on timer only")
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.reload(ctx, "timer")
		case msg, ok := <-messages:
			if !ok {
				messages = nil
				continue
			}
			r.logger.Debug("catalog invalidation received", zap.String("payload", msg.Payload))
			r.reload(ctx, "invalidation")
		}
	}
}

func (r *CatalogRefresher) reload(ctx context.Context, trigger string) {
	if _, err := r.provider.Reload(ctx); err != nil && ctx.Err() == nil {
		r.logger.Warn("catalog reload failed", zap.String("trigger", trigger), zap.Error(err))
	}
}

// Invalidate reloads the local snapshot and asks every other instance to
// reload theirs.
func (r *CatalogRefresher) Invalidate(ctx context.Context, reason string) (*catalog.Snapshot, error) {
	snapshot, err := r.provider.Reload(ctx)
	if err != nil {
		return nil, err
	}
	if r.client != nil && r.channel != "" {
		if err := r.client.Publish(ctx, r.channel, reason).Err(); err != nil {
			r.logger.Warn("publish catalog invalidation failed", zap.Error(err))
		}
	}
	return snapshot, nil
}
