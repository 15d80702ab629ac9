package store

import (
	"context"

	"github.com/gomodule/redigo/redis"

	"github.com/thebtf/mentor/pkg/models"
)

// LogStudyMinutes appends one entry to the session's study log. The value is
// stored as-is; sign and magnitude are not validated.
func (s *SessionStore) LogStudyMinutes(ctx context.Context, sessionID string, minutes int) error {
	if sessionID == "" {
		return nil
	}

	conn, err := s.conn(ctx, "log study")
	if err != nil {
		return err
	}
	defer conn.Close()

	key := studyKey(sessionID)
	if _, err := redis.DoContext(conn, ctx, "RPUSH", key, minutes); err != nil {
		return unavailable("log study: rpush", err)
	}
	if s.studyTTL > 0 {
		if _, err := redis.DoContext(conn, ctx, "EXPIRE", key, int(s.studyTTL.Seconds())); err != nil {
			return unavailable("log study: expire", err)
		}
	}
	return nil
}

// StudyStats sums the full study log on every call; there is no cached
// aggregate to drift out of sync.
func (s *SessionStore) StudyStats(ctx context.Context, sessionID string) (models.StudyStats, error) {
	if sessionID == "" {
		return models.StudyStats{}, nil
	}

	conn, err := s.conn(ctx, "study stats")
	if err != nil {
		return models.StudyStats{}, err
	}
	defer conn.Close()

	entries, err := redis.Ints(redis.DoContext(conn, ctx, "LRANGE", studyKey(sessionID), 0, -1))
	if err != nil {
		return models.StudyStats{}, unavailable("study stats: lrange", err)
	}

	stats := models.StudyStats{TotalSessions: len(entries)}
	for _, minutes := range entries {
		stats.TotalMinutes += minutes
	}
	return stats, nil
}
