// Package store provides Redis-backed session state for mentor: bounded
// chat transcripts, task collections, and study-time logs, all scoped by an
// opaque session identifier.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
)

// ErrUnavailable marks a store connection or operation failure. Callers must
// surface it rather than treat it as "no data".
var ErrUnavailable = errors.New("session store unavailable")

// Key prefixes for the three sub-records of a session.
const (
	chatKeyPrefix  = "chat:"
	tasksKeyPrefix = "tasks:"
	studyKeyPrefix = "study:"
)

// DefaultHistoryCap bounds the transcript to the most recent N messages.
const DefaultHistoryCap = 20

// DefaultContextLimit is how many trailing messages RecentContext returns
// when the caller passes a non-positive limit.
const DefaultContextLimit = 10

// Options configures retention and transcript bounds. A zero TTL disables
// expiry for that record kind.
type Options struct {
	ChatTTL    time.Duration
	TaskTTL    time.Duration
	StudyTTL   time.Duration
	HistoryCap int
}

// SessionStore is the Redis-backed session state store. All operations are
// no-ops returning empty defaults when the session identifier is empty;
// connection failures wrap ErrUnavailable.
type SessionStore struct {
	pool       *redis.Pool
	chatTTL    time.Duration
	taskTTL    time.Duration
	studyTTL   time.Duration
	historyCap int
}

// New creates a SessionStore on top of an existing connection pool.
func New(pool *redis.Pool, opts Options) *SessionStore {
	if opts.HistoryCap <= 0 {
		opts.HistoryCap = DefaultHistoryCap
	}
	return &SessionStore{
		pool:       pool,
		chatTTL:    opts.ChatTTL,
		taskTTL:    opts.TaskTTL,
		studyTTL:   opts.StudyTTL,
		historyCap: opts.HistoryCap,
	}
}

// NewPool creates a redigo connection pool for the given address.
// Connections are established lazily, so a down Redis only surfaces when an
// operation runs.
func NewPool(addr string) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     8,
		MaxActive:   32,
		IdleTimeout: 240 * time.Second,
		Wait:        true,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			return redis.DialContext(ctx, "tcp", addr)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
}

// Ping verifies connectivity to Redis.
func (s *SessionStore) Ping(ctx context.Context) error {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return unavailable("ping", err)
	}
	defer conn.Close()

	if _, err := redis.DoContext(conn, ctx, "PING"); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Close releases the underlying pool.
func (s *SessionStore) Close() error {
	return s.pool.Close()
}

// conn checks out a connection, wrapping failures as ErrUnavailable.
func (s *SessionStore) conn(ctx context.Context, op string) (redis.Conn, error) {
	c, err := s.pool.GetContext(ctx)
	if err != nil {
		return nil, unavailable(op, err)
	}
	return c, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
}

func chatKey(sessionID string) string  { return chatKeyPrefix + sessionID }
func tasksKey(sessionID string) string { return tasksKeyPrefix + sessionID }
func studyKey(sessionID string) string { return studyKeyPrefix + sessionID }
