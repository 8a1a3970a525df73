// Package session keeps login sessions in Redis and their ids in a cookie.
package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned for unknown, expired or malformed session ids.
var ErrNotFound = errors.New("session not found")

const keyPrefix = "session:"

// Store maps session ids to user ids with a sliding TTL.
type Store struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewStore creates a Store backed by client.
func NewStore(client redis.Cmdable, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// TTL is how long a session lives without activity.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

func key(id string) string {
	return keyPrefix + id
}

// Create opens a session for userID and returns its id.
func (s *Store) Create(ctx context.Context, userID int64) (string, error) {
	id := uuid.NewString()
	if err := s.client.Set(ctx, key(id), userID, s.ttl).Err(); err != nil {
		return "", errors.Wrap(err, "failed to store session")
	}
	return id, nil
}

// Lookup resolves id to a user id and extends the session.
func (s *Store) Lookup(ctx context.Context, id string) (int64, error) {
	if _, err := uuid.Parse(id); err != nil {
		return 0, ErrNotFound
	}

	raw, err := s.client.GetEx(ctx, key(id), s.ttl).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, errors.Wrap(err, "failed to read session")
	}

	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt session %s: %w", id, ErrNotFound)
	}
	return userID, nil
}

// Destroy removes the session. Unknown ids are not an error.
func (s *Store) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.client.Del(ctx, key(id)).Err(); err != nil {
		return errors.Wrap(err, "failed to delete session")
	}
	return nil
}
