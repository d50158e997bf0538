package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"hospitality-commands/internal/models"
)

const RecentCommandsKey = "whatsapp:commands:recent"

// RedisSink keeps a capped list of the most recent records, newest first.
type RedisSink struct {
	client redis.Cmdable
	limit  int
}

func NewRedisSink(client redis.Cmdable, limit int) *RedisSink {
	if limit <= 0 {
		limit = 100
	}
	return &RedisSink{client: client, limit: limit}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Write(ctx context.Context, rec models.CommandRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := s.client.LPush(ctx, RecentCommandsKey, string(data)).Err(); err != nil {
		return fmt.Errorf("lpush: %w", err)
	}
	if err := s.client.LTrim(ctx, RecentCommandsKey, 0, int64(s.limit-1)).Err(); err != nil {
		return fmt.Errorf("ltrim: %w", err)
	}
	return nil
}

func (s *RedisSink) Recent(ctx context.Context, limit int) ([]models.CommandRecord, error) {
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}
	items, err := s.client.LRange(ctx, RecentCommandsKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange: %w", err)
	}

	out := make([]models.CommandRecord, 0, len(items))
	for _, item := range items {
		var rec models.CommandRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
