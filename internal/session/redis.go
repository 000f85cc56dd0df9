package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions in Redis as JSON values with a TTL, so
// sessions survive restarts and expire on their own.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore builds a store writing under prefix with the given TTL.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "whitelist:session"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisStore) key(chatID int64) string {
	return fmt.Sprintf("%s:%d", r.prefix, chatID)
}

// Get returns the stored session, or a zero session for unknown chats.
func (r *RedisStore) Get(ctx context.Context, chatID int64) (Session, error) {
	raw, err := r.client.Get(ctx, r.key(chatID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, nil
		}
		return Session{}, err
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		// Corrupt value; start the chat over rather than wedge it.
		return Session{}, nil
	}
	return sess, nil
}

// Put stores the session and refreshes its TTL.
func (r *RedisStore) Put(ctx context.Context, chatID int64, sess Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(chatID), raw, r.ttl).Err()
}
