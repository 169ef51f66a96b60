package events

import (
	"context"
	"encoding/json"

	apperrors "github.com/Paxxs/moledao-spider/internal/errors"
	"github.com/Paxxs/moledao-spider/internal/telemetry"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultRedisChannelPrefix = "moledao:scrape"

// RedisSink publishes every event as JSON on <prefix>:<kind>.
type RedisSink struct {
	rdb    *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, apperrors.Unavailable("parse redis url", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, apperrors.Unavailable("redis ping failed", err)
	}
	return client, nil
}

func NewRedisSink(rdb *redis.Client, prefix string, logger *zap.Logger) *RedisSink {
	if prefix == "" {
		prefix = DefaultRedisChannelPrefix
	}
	return &RedisSink{rdb: rdb, prefix: prefix, logger: logger}
}

func (s *RedisSink) Channel(kind Kind) string {
	return s.prefix + ":" + string(kind)
}

func (s *RedisSink) Emit(ctx context.Context, ev Event) {
	ctx, span := tracer.Start(ctx, "RedisSink.Emit")
	defer span.End()

	data, err := json.Marshal(ev)
	if err != nil {
		span.RecordError(err)
		s.logger.Error("failed to marshal event", zap.String("kind", string(ev.Kind)), zap.Error(err))
		return
	}
	channel := s.Channel(ev.Kind)
	span.SetAttributes(telemetry.String("redis.channel", channel))
	if err := s.rdb.Publish(ctx, channel, data).Err(); err != nil {
		span.RecordError(err)
		s.logger.Warn("failed to publish event",
			zap.String("channel", channel),
			zap.Error(err))
	}
}

func (s *RedisSink) Close() error {
	return s.rdb.Close()
}
