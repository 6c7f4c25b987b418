package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/user/neptun-scraper/internal/config"
	"github.com/user/neptun-scraper/internal/domain"
	"github.com/user/neptun-scraper/pkg/utils"
)

// RedisSink publishes records to a per-kind list and stores each record
// under its own expiring key.
type RedisSink struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisSink(cfg config.RedisConfig, logger *zap.Logger) *RedisSink {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisSink{client: rdb, ttl: cfg.TTL, logger: logger}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}

// ListKey is the list every record of kind is pushed to.
func ListKey(kind domain.Kind) string {
	return fmt.Sprintf("neptun:%s:records", kind)
}

// RecordKey is the key holding the latest version of a record.
func RecordKey(kind domain.Kind, key string) string {
	return fmt.Sprintf("neptun:%s:%s", kind, utils.HashKey(key))
}

func (s *RedisSink) Write(ctx context.Context, res *domain.Result) error {
	records := res.Records()
	if len(records) == 0 {
		return nil
	}
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, rec := range records {
			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("encode record %q: %w", rec.Key(), err)
			}
			p.LPush(ctx, ListKey(rec.Kind()), data)
			p.Set(ctx, RecordKey(rec.Kind(), rec.Key()), data, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish %s records: %w", res.Target, err)
	}
	s.logger.Info("results published", zap.String("target", res.Target), zap.Int("records", len(records)))
	return nil
}
