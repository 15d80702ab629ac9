package store

import (
	"context"
	"errors"

	"github.com/goccy/go-json"
	"github.com/gomodule/redigo/redis"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/mentor/pkg/models"
)

// AppendMessage appends a message to the session transcript, truncates it to
// the history cap, and refreshes the transcript's expiry. The bound holds
// after every append, even if the stored list previously exceeded it.
func (s *SessionStore) AppendMessage(ctx context.Context, sessionID, role, content string) error {
	if sessionID == "" {
		return nil
	}

	payload, err := json.Marshal(models.ChatMessage{Role: role, Content: content})
	if err != nil {
		return err
	}

	conn, err := s.conn(ctx, "append message")
	if err != nil {
		return err
	}
	defer conn.Close()

	key := chatKey(sessionID)
	if _, err := redis.DoContext(conn, ctx, "RPUSH", key, payload); err != nil {
		return unavailable("append message: rpush", err)
	}
	if _, err := redis.DoContext(conn, ctx, "LTRIM", key, -s.historyCap, -1); err != nil {
		return unavailable("append message: ltrim", err)
	}
	if s.chatTTL > 0 {
		if _, err := redis.DoContext(conn, ctx, "EXPIRE", key, int(s.chatTTL.Seconds())); err != nil {
			return unavailable("append message: expire", err)
		}
	}
	return nil
}

// RecentContext returns the last limit messages for a session, oldest first.
// A non-positive limit uses the default context window.
func (s *SessionStore) RecentContext(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error) {
	if sessionID == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultContextLimit
	}
	return s.readTranscript(ctx, sessionID, -limit)
}

// FullHistory returns the entire capped transcript, oldest first.
func (s *SessionStore) FullHistory(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	if sessionID == "" {
		return nil, nil
	}
	return s.readTranscript(ctx, sessionID, 0)
}

func (s *SessionStore) readTranscript(ctx context.Context, sessionID string, start int) ([]models.ChatMessage, error) {
	conn, err := s.conn(ctx, "read transcript")
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	raw, err := redis.Strings(redis.DoContext(conn, ctx, "LRANGE", chatKey(sessionID), start, -1))
	if err != nil {
		return nil, unavailable("read transcript: lrange", err)
	}

	messages := make([]models.ChatMessage, 0, len(raw))
	for _, entry := range raw {
		var msg models.ChatMessage
		if err := json.Unmarshal([]byte(entry), &msg); err != nil {
			log.Warn().Str("sessionId", sessionID).Err(err).Msg("Skipping malformed transcript entry")
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// DeleteSession removes the transcript, task collection, and study log for a
// session in one best-effort batch. Failures on individual keys are
// aggregated and returned; the remaining keys are still attempted.
func (s *SessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	conn, err := s.conn(ctx, "delete session")
	if err != nil {
		return err
	}
	defer conn.Close()

	var errs []error
	for _, key := range []string{chatKey(sessionID), tasksKey(sessionID), studyKey(sessionID)} {
		if _, err := redis.DoContext(conn, ctx, "DEL", key); err != nil {
			errs = append(errs, unavailable("delete session: del "+key, err))
		}
	}
	return errors.Join(errs...)
}
