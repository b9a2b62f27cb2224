package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/yourorg/vendorhub/internal/domain"
	"github.com/yourorg/vendorhub/internal/infrastructure/redis"
	"github.com/yourorg/vendorhub/internal/reliability/circuitbreaker"
)

// Session is a refresh-token record. The token itself is the opaque key;
// Redis TTL enforces expiry.
type Session struct {
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// RedisSessionRepository stores refresh sessions in Redis with a TTL. A
// circuit breaker fronts the store so login and refresh fail fast while
// Redis is down instead of stacking up timeouts.
type RedisSessionRepository struct {
	client  *redis.Client
	breaker *circuitbreaker.Breaker
	ttl     time.Duration
	logger  *slog.Logger
}

// NewRedisSessionRepository creates a new session repository
func NewRedisSessionRepository(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisSessionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisSessionRepository{
		client:  client,
		breaker: circuitbreaker.New("redis-sessions", 5, 2, 30*time.Second, logger),
		ttl:     ttl,
		logger:  logger,
	}
}

func sessionKey(token string) string {
	return "session:" + token
}

// Create issues a new refresh token for the user and stores its session.
func (r *RedisSessionRepository) Create(ctx context.Context, userID int64) (string, error) {
	if !r.breaker.Allow() {
		return "", fmt.Errorf("session store unavailable: %w", circuitbreaker.ErrOpen)
	}

	token := uuid.NewString()
	payload, err := json.Marshal(Session{UserID: userID, CreatedAt: time.Now()})
	if err != nil {
		return "", fmt.Errorf("failed to encode session: %w", err)
	}

	if err := r.client.Set(ctx, sessionKey(token), payload, r.ttl); err != nil {
		r.breaker.Failure()
		r.logger.Error("failed to store session", slog.String("error", err.Error()))
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	r.breaker.Success()
	return token, nil
}

// Consume atomically looks up and deletes a refresh token, returning its
// session. Each token is single-use; refresh rotates it.
func (r *RedisSessionRepository) Consume(ctx context.Context, token string) (*Session, error) {
	if !r.breaker.Allow() {
		return nil, fmt.Errorf("session store unavailable: %w", circuitbreaker.ErrOpen)
	}

	key := sessionKey(token)
	raw, err := r.client.Get(ctx, key)
	if err != nil {
		if redis.IsNil(err) {
			r.breaker.Success()
			return nil, domain.ErrUnauthenticated
		}
		r.breaker.Failure()
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	if err := r.client.Delete(ctx, key); err != nil {
		r.breaker.Failure()
		return nil, fmt.Errorf("failed to rotate session: %w", err)
	}
	r.breaker.Success()

	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &s, nil
}

// Revoke deletes a refresh token without consuming it (logout).
func (r *RedisSessionRepository) Revoke(ctx context.Context, token string) error {
	if !r.breaker.Allow() {
		return fmt.Errorf("session store unavailable: %w", circuitbreaker.ErrOpen)
	}
	if err := r.client.Delete(ctx, sessionKey(token)); err != nil {
		r.breaker.Failure()
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	r.breaker.Success()
	return nil
}
