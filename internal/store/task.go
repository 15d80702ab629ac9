package store

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/gomodule/redigo/redis"
	"github.com/google/uuid"

	"github.com/thebtf/mentor/pkg/models"
)

// UpsertTask stores or overwrites a task by id within the session's task
// collection. A task without an id is assigned a fresh one. The stored task
// is returned.
func (s *SessionStore) UpsertTask(ctx context.Context, sessionID string, task models.Task) (models.Task, error) {
	if sessionID == "" {
		return task, nil
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	task.SessionID = sessionID

	payload, err := json.Marshal(task)
	if err != nil {
		return task, err
	}

	conn, err := s.conn(ctx, "upsert task")
	if err != nil {
		return task, err
	}
	defer conn.Close()

	key := tasksKey(sessionID)
	if _, err := redis.DoContext(conn, ctx, "HSET", key, task.ID, payload); err != nil {
		return task, unavailable("upsert task: hset", err)
	}
	if s.taskTTL > 0 {
		if _, err := redis.DoContext(conn, ctx, "EXPIRE", key, int(s.taskTTL.Seconds())); err != nil {
			return task, unavailable("upsert task: expire", err)
		}
	}
	return task, nil
}

// ListTasks returns all of a session's tasks. Order is not guaranteed.
func (s *SessionStore) ListTasks(ctx context.Context, sessionID string) ([]models.Task, error) {
	if sessionID == "" {
		return nil, nil
	}

	conn, err := s.conn(ctx, "list tasks")
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	entries, err := redis.StringMap(redis.DoContext(conn, ctx, "HGETALL", tasksKey(sessionID)))
	if err != nil {
		return nil, unavailable("list tasks: hgetall", err)
	}

	tasks := make([]models.Task, 0, len(entries))
	for _, raw := range entries {
		var task models.Task
		if err := json.Unmarshal([]byte(raw), &task); err != nil {
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// PatchTask merges the supplied fields into an existing task and rewrites
// it. The returned bool reports whether the task existed; patching an
// unknown id changes nothing.
func (s *SessionStore) PatchTask(ctx context.Context, sessionID, taskID string, patch models.TaskPatch) (bool, error) {
	if sessionID == "" {
		return false, nil
	}

	conn, err := s.conn(ctx, "patch task")
	if err != nil {
		return false, err
	}
	defer conn.Close()

	key := tasksKey(sessionID)
	raw, err := redis.Bytes(redis.DoContext(conn, ctx, "HGET", key, taskID))
	if err == redis.ErrNil {
		return false, nil
	}
	if err != nil {
		return false, unavailable("patch task: hget", err)
	}

	var task models.Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return false, err
	}
	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Completed != nil {
		task.Completed = *patch.Completed
	}

	payload, err := json.Marshal(task)
	if err != nil {
		return false, err
	}
	if _, err := redis.DoContext(conn, ctx, "HSET", key, taskID, payload); err != nil {
		return false, unavailable("patch task: hset", err)
	}
	return true, nil
}

// DeleteTask removes a task. Unknown ids are a no-op.
func (s *SessionStore) DeleteTask(ctx context.Context, sessionID, taskID string) error {
	if sessionID == "" {
		return nil
	}

	conn, err := s.conn(ctx, "delete task")
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := redis.DoContext(conn, ctx, "HDEL", tasksKey(sessionID), taskID); err != nil {
		return unavailable("delete task: hdel", err)
	}
	return nil
}
