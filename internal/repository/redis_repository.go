package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"intellimind/backend/internal/model"
)

// DefaultRedisKey is the hash that holds one field per chat.
const DefaultRedisKey = "intellimind:chats"

type redisRepository struct {
	rdb *redis.Client
	key string
}

// NewRedisRepository stores chats as fields of a single Redis hash (field = chat
// id, value = chat JSON). Save swaps the whole hash inside MULTI/EXEC.
func NewRedisRepository(rdb *redis.Client, key string) Repository {
	if key == "" {
		key = DefaultRedisKey
	}
	return &redisRepository{rdb: rdb, key: key}
}

func (r *redisRepository) Load(ctx context.Context) (map[string]*model.Chat, error) {
	fields, err := r.rdb.HGetAll(ctx, r.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return map[string]*model.Chat{}, nil
		}
		return nil, fmt.Errorf("could not read chats from redis: %w", err)
	}

	chats := make(map[string]*model.Chat, len(fields))
	for id, raw := range fields {
		chat, err := decodeChat([]byte(raw))
		if err != nil {
			slog.Warn("Chat hash holds undecodable data, starting empty", "key", r.key, "chat_id", id, "error", err)
			return map[string]*model.Chat{}, nil
		}
		chats[id] = chat
	}
	return chats, nil
}

func (r *redisRepository) Save(ctx context.Context, chats map[string]*model.Chat) error {
	values := make([]interface{}, 0, 2*len(chats))
	for _, id := range sortedIDs(chats) {
		data, err := json.Marshal(chats[id])
		if err != nil {
			return fmt.Errorf("could not encode chat %s: %w", id, err)
		}
		values = append(values, id, string(data))
	}

	pipe := r.rdb.TxPipeline()
	pipe.Del(ctx, r.key)
	if len(values) > 0 {
		pipe.HSet(ctx, r.key, values...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to execute chat save pipeline: %w", err)
	}
	return nil
}
