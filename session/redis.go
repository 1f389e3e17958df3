package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore implements the Store interface using Redis with server-side TTL.
// Message history may live on a separate Redis instance from session state;
// both clients may point at the same instance.
type RedisStore struct {
	sessions *redis.Client
	messages *redis.Client
	logger   *slog.Logger
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a RedisStore. messageClient may be nil, in which case
// sessionClient holds message history too.
func NewRedisStore(sessionClient, messageClient *redis.Client, logger *slog.Logger) *RedisStore {
	if messageClient == nil {
		messageClient = sessionClient
	}
	return &RedisStore{
		sessions: sessionClient,
		messages: messageClient,
		logger:   logger.With(slog.String("component", "session_store_redis")),
	}
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

func messagesKey(sessionID string) string {
	return fmt.Sprintf("session:%s:messages", sessionID)
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*State, error) {
	data, err := s.sessions.Get(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var state State
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session state: %w", err)
	}
	return &state, nil
}

func (s *RedisStore) Put(ctx context.Context, sessionID string, state *State, ttl time.Duration) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}
	// Set carries the TTL, so the key never exists without one.
	if err := s.sessions.Set(ctx, sessionKey(sessionID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Extend(ctx context.Context, sessionID string, ttl time.Duration) (bool, error) {
	ok, err := s.sessions.Expire(ctx, sessionKey(sessionID), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis expire failed: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) (bool, error) {
	deleted, err := s.sessions.Del(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis del failed: %w", err)
	}
	if _, err := s.messages.Del(ctx, messagesKey(sessionID)).Result(); err != nil {
		s.logger.Warn("failed to delete session history", slog.String("session_id", sessionID), slog.Any("error", err))
	}
	return deleted > 0, nil
}

func (s *RedisStore) Info(ctx context.Context, sessionID string) (*Info, error) {
	state, err := s.Get(ctx, sessionID)
	if err != nil || state == nil {
		return nil, err
	}
	ttl, err := s.sessions.TTL(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis ttl failed: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Info{State: *state, RemainingTTL: ttl}, nil
}

func (s *RedisStore) AppendMessage(ctx context.Context, sessionID string, msg Message, ttl time.Duration) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	key := messagesKey(sessionID)
	if err := s.messages.RPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("redis rpush failed: %w", err)
	}
	// The whole list carries one TTL, refreshed on every append.
	if err := s.messages.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("redis expire failed: %w", err)
	}
	return nil
}

func (s *RedisStore) ListMessages(ctx context.Context, sessionID string) ([]Message, error) {
	raw, err := s.messages.LRange(ctx, messagesKey(sessionID), 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis lrange failed: %w", err)
	}

	messages := make([]Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			s.logger.Warn("skipping unparsable history record", slog.String("session_id", sessionID), slog.Any("error", err))
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}
