// Package ratelimit implements a fixed-window request counter in Redis.
package ratelimit

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Result is the outcome of one Allow call.
type Result struct {
	Allowed    bool
	Count      int64
	Remaining  int
	RetryAfter time.Duration
}

// Limiter allows Limit hits per key in every Window.
type Limiter struct {
	client redis.Cmdable
	prefix string
	Limit  int
	Window time.Duration
}

// New creates a Limiter whose keys are namespaced by prefix.
func New(client redis.Cmdable, prefix string, limit int, window time.Duration) *Limiter {
	return &Limiter{client: client, prefix: prefix, Limit: limit, Window: window}
}

func (l *Limiter) key(subject string) string {
	return "ratelimit:" + l.prefix + ":" + subject
}

// Allow records one hit for subject. The window starts with the first hit.
// INCR and TTL run in one MULTI; a key without expiry, new or left behind by
// a failed EXPIRE, gets the window set before the result is evaluated.
func (l *Limiter) Allow(ctx context.Context, subject string) (Result, error) {
	key := l.key(subject)

	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil {
		return Result{}, errors.Wrap(err, "failed to count request")
	}

	remaining := ttl.Val()
	if remaining < 0 {
		if err := l.client.Expire(ctx, key, l.Window).Err(); err != nil {
			return Result{}, errors.Wrap(err, "failed to start rate limit window")
		}
		remaining = l.Window
	}

	count := incr.Val()
	res := Result{Count: count, Allowed: count <= int64(l.Limit)}
	if res.Allowed {
		res.Remaining = l.Limit - int(count)
	} else {
		res.RetryAfter = remaining
	}
	return res, nil
}
