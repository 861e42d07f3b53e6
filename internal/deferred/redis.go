package deferred

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const keyPrefix = "deferred_context:"

// RedisStore реализация Store поверх Redis.
// Consume опирается на GETDEL (Redis >= 6.2) для атомарного read-and-delete.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisStore создает Redis-backed store с заданным TTL контекстов
func NewRedisStore(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

func (s *RedisStore) Create(ctx context.Context, snapshot *Context) (string, error) {
	trackingID := uuid.New().String()

	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("failed to marshal deferred context: %w", err)
	}

	if err := s.client.Set(ctx, keyPrefix+trackingID, payload, s.ttl).Err(); err != nil {
		s.log.Error("failed to store deferred context",
			zap.String("tracking_id", trackingID), zap.Error(err))
		return "", fmt.Errorf("failed to store deferred context: %w", err)
	}

	s.log.Debug("deferred context created",
		zap.String("tracking_id", trackingID),
		zap.String("short_code", snapshot.ShortCode))
	return trackingID, nil
}

func (s *RedisStore) Peek(ctx context.Context, trackingID string) (*Context, error) {
	payload, err := s.client.Get(ctx, keyPrefix+trackingID).Bytes()
	if err == redis.Nil {
		return nil, ErrContextNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read deferred context: %w", err)
	}

	return unmarshalContext(payload)
}

func (s *RedisStore) Consume(ctx context.Context, trackingID string) (*Context, error) {
	// GETDEL атомарен: из конкурирующих потребителей значение получит один
	payload, err := s.client.GetDel(ctx, keyPrefix+trackingID).Bytes()
	if err == redis.Nil {
		return nil, ErrContextNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume deferred context: %w", err)
	}

	s.log.Debug("deferred context consumed", zap.String("tracking_id", trackingID))
	return unmarshalContext(payload)
}

func unmarshalContext(payload []byte) (*Context, error) {
	var snapshot Context
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal deferred context: %w", err)
	}
	return &snapshot, nil
}

// NewRedisClient создает и проверяет подключение к Redis
func NewRedisClient(ctx context.Context, addr, password string, db, poolSize, minIdleConns int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     poolSize,
		MinIdleConns: minIdleConns,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}
