package models

// Task is a to-do item owned by a session.
type Task struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	SessionID string `json:"session_id"`
}

// TaskPatch is a partial update applied to an existing task. Nil fields are
// left untouched.
type TaskPatch struct {
	Title     *string `json:"title,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// StudyStats aggregates a session's study log.
type StudyStats struct {
	TotalSessions int `json:"total_sessions"`
	TotalMinutes  int `json:"total_minutes"`
}

// TaskStats summarizes a session's task list for the analytics endpoint.
type TaskStats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}
