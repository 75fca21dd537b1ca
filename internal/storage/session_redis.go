package storage

import (
	"complaintbot/backend/internal/models"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const conversationKeyPrefix = "conversation:"

func conversationKey(reporterID int64) string {
	return fmt.Sprintf("%s%d", conversationKeyPrefix, reporterID)
}

// RedisSessions keeps conversations as JSON values in redis. When TTL is set every
// Save refreshes the key expiry, so idle conversations disappear on their own.
type RedisSessions struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewRedisSessions(rdb *redis.Client, ttl time.Duration) *RedisSessions {
	return &RedisSessions{Redis: rdb, TTL: ttl}
}

func (r *RedisSessions) Load(ctx context.Context, reporterID int64) (*models.Conversation, error) {
	data, err := r.Redis.Get(ctx, conversationKey(reporterID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var conv models.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("decode conversation %d: %w", reporterID, err)
	}
	return &conv, nil
}

func (r *RedisSessions) Save(ctx context.Context, conv *models.Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return err
	}
	return r.Redis.Set(ctx, conversationKey(conv.ReporterID), data, r.TTL).Err()
}

func (r *RedisSessions) Clear(ctx context.Context, reporterID int64) error {
	return r.Redis.Del(ctx, conversationKey(reporterID)).Err()
}

// Sweep is a no-op: expiry is delegated to the key TTL.
func (r *RedisSessions) Sweep(ctx context.Context, idle time.Duration, now time.Time) (int, error) {
	return 0, nil
}
