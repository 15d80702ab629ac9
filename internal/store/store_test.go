package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/thebtf/mentor/pkg/models"
)

func testStore(t *testing.T, opts Options) (*SessionStore, *miniredis.Miniredis, func()) {
	t.Helper()

	mr := miniredis.RunT(t)
	pool := NewPool(mr.Addr())
	s := New(pool, opts)

	return s, mr, func() {
		s.Close()
	}
}

// SessionStoreSuite is a test suite for SessionStore operations.
type SessionStoreSuite struct {
	suite.Suite
	store   *SessionStore
	redis   *miniredis.Miniredis
	cleanup func()
}

func (s *SessionStoreSuite) SetupTest() {
	s.store, s.redis, s.cleanup = testStore(s.T(), Options{ChatTTL: 24 * time.Hour})
}

func (s *SessionStoreSuite) TearDownTest() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

func TestSessionStoreSuite(t *testing.T) {
	suite.Run(t, new(SessionStoreSuite))
}

// TestAppendMessage_CapsTranscript verifies the sliding-window bound: after
// any number of appends the stored length is min(N, cap) and the content is
// the most recent messages in original order.
func (s *SessionStoreSuite) TestAppendMessage_CapsTranscript() {
	ctx := context.Background()
	const total = 30

	for i := 0; i < total; i++ {
		err := s.store.AppendMessage(ctx, "s1", models.RoleUser, fmt.Sprintf("message %d", i))
		s.Require().NoError(err)

		history, err := s.store.FullHistory(ctx, "s1")
		s.Require().NoError(err)

		want := i + 1
		if want > DefaultHistoryCap {
			want = DefaultHistoryCap
		}
		s.Require().Len(history, want)
	}

	history, err := s.store.FullHistory(ctx, "s1")
	s.Require().NoError(err)
	s.Require().Len(history, DefaultHistoryCap)

	// Oldest surviving entry is total-cap, newest is total-1
	s.Equal(fmt.Sprintf("message %d", total-DefaultHistoryCap), history[0].Content)
	s.Equal(fmt.Sprintf("message %d", total-1), history[len(history)-1].Content)
}

// TestAppendMessage_RefreshesTTL verifies expiry is reset on every append.
func (s *SessionStoreSuite) TestAppendMessage_RefreshesTTL() {
	ctx := context.Background()

	s.Require().NoError(s.store.AppendMessage(ctx, "s1", models.RoleUser, "hello"))
	s.Equal(24*time.Hour, s.redis.TTL("chat:s1"))

	s.redis.FastForward(12 * time.Hour)
	s.Require().NoError(s.store.AppendMessage(ctx, "s1", models.RoleAssistant, "hi"))
	s.Equal(24*time.Hour, s.redis.TTL("chat:s1"))
}

// TestRecentContext returns the trailing window, oldest first.
func (s *SessionStoreSuite) TestRecentContext() {
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		s.Require().NoError(s.store.AppendMessage(ctx, "s1", models.RoleUser, fmt.Sprintf("m%d", i)))
	}

	recent, err := s.store.RecentContext(ctx, "s1", 10)
	s.Require().NoError(err)
	s.Require().Len(recent, 10)
	s.Equal("m5", recent[0].Content)
	s.Equal("m14", recent[9].Content)

	// Default limit when non-positive
	recent, err = s.store.RecentContext(ctx, "s1", 0)
	s.Require().NoError(err)
	s.Len(recent, DefaultContextLimit)

	// Absent session yields an empty sequence, not an error
	recent, err = s.store.RecentContext(ctx, "nope", 10)
	s.Require().NoError(err)
	s.Empty(recent)
}

// TestEmptySessionID_NoOps verifies every operation is a silent no-op without
// a session identifier.
func (s *SessionStoreSuite) TestEmptySessionID_NoOps() {
	ctx := context.Background()

	s.NoError(s.store.AppendMessage(ctx, "", models.RoleUser, "x"))

	history, err := s.store.FullHistory(ctx, "")
	s.NoError(err)
	s.Empty(history)

	tasks, err := s.store.ListTasks(ctx, "")
	s.NoError(err)
	s.Empty(tasks)

	stats, err := s.store.StudyStats(ctx, "")
	s.NoError(err)
	s.Equal(models.StudyStats{}, stats)

	s.NoError(s.store.DeleteSession(ctx, ""))
	s.Empty(s.redis.Keys())
}

// TestUpsertTask_GeneratesUniqueIDs verifies fresh ids are assigned when none
// is supplied, distinct across upserts.
func (s *SessionStoreSuite) TestUpsertTask_GeneratesUniqueIDs() {
	ctx := context.Background()
	seen := make(map[string]bool)

	for i := 0; i < 5; i++ {
		task, err := s.store.UpsertTask(ctx, "s1", models.Task{Title: fmt.Sprintf("task %d", i)})
		s.Require().NoError(err)
		s.Require().NotEmpty(task.ID)
		s.Equal("s1", task.SessionID)
		s.False(seen[task.ID], "task id reused")
		seen[task.ID] = true
	}

	tasks, err := s.store.ListTasks(ctx, "s1")
	s.Require().NoError(err)
	s.Len(tasks, 5)
}

// TestUpsertTask_OverwritesByID verifies identity is the id.
func (s *SessionStoreSuite) TestUpsertTask_OverwritesByID() {
	ctx := context.Background()

	_, err := s.store.UpsertTask(ctx, "s1", models.Task{ID: "t1", Title: "original"})
	s.Require().NoError(err)
	_, err = s.store.UpsertTask(ctx, "s1", models.Task{ID: "t1", Title: "rewritten", Completed: true})
	s.Require().NoError(err)

	tasks, err := s.store.ListTasks(ctx, "s1")
	s.Require().NoError(err)
	s.Require().Len(tasks, 1)
	s.Equal("rewritten", tasks[0].Title)
	s.True(tasks[0].Completed)
}

// TestPatchTask merges supplied fields and reports existence.
func (s *SessionStoreSuite) TestPatchTask() {
	ctx := context.Background()

	_, err := s.store.UpsertTask(ctx, "s1", models.Task{ID: "t1", Title: "learn redis"})
	s.Require().NoError(err)

	completed := true
	found, err := s.store.PatchTask(ctx, "s1", "t1", models.TaskPatch{Completed: &completed})
	s.Require().NoError(err)
	s.True(found)

	tasks, err := s.store.ListTasks(ctx, "s1")
	s.Require().NoError(err)
	s.Require().Len(tasks, 1)
	s.Equal("learn redis", tasks[0].Title)
	s.True(tasks[0].Completed)

	title := "learn redigo"
	found, err = s.store.PatchTask(ctx, "s1", "t1", models.TaskPatch{Title: &title})
	s.Require().NoError(err)
	s.True(found)

	tasks, _ = s.store.ListTasks(ctx, "s1")
	s.Equal("learn redigo", tasks[0].Title)
	s.True(tasks[0].Completed)
}

// TestPatchTask_UnknownID verifies patching a nonexistent id changes nothing
// and reports not-found.
func (s *SessionStoreSuite) TestPatchTask_UnknownID() {
	ctx := context.Background()

	_, err := s.store.UpsertTask(ctx, "s1", models.Task{ID: "t1", Title: "keep me"})
	s.Require().NoError(err)

	before, err := s.store.ListTasks(ctx, "s1")
	s.Require().NoError(err)

	completed := true
	found, err := s.store.PatchTask(ctx, "s1", "ghost", models.TaskPatch{Completed: &completed})
	s.Require().NoError(err)
	s.False(found)

	after, err := s.store.ListTasks(ctx, "s1")
	s.Require().NoError(err)
	s.Equal(before, after)
}

// TestDeleteTask removes by id; unknown ids are a no-op.
func (s *SessionStoreSuite) TestDeleteTask() {
	ctx := context.Background()

	_, err := s.store.UpsertTask(ctx, "s1", models.Task{ID: "t1", Title: "a"})
	s.Require().NoError(err)

	s.Require().NoError(s.store.DeleteTask(ctx, "s1", "t1"))
	s.Require().NoError(s.store.DeleteTask(ctx, "s1", "t1"))

	tasks, err := s.store.ListTasks(ctx, "s1")
	s.Require().NoError(err)
	s.Empty(tasks)
}

// TestStudyStats sums the full log on every call.
func (s *SessionStoreSuite) TestStudyStats() {
	ctx := context.Background()

	for _, minutes := range []int{10, 20, 30} {
		s.Require().NoError(s.store.LogStudyMinutes(ctx, "s1", minutes))
	}

	stats, err := s.store.StudyStats(ctx, "s1")
	s.Require().NoError(err)
	s.Equal(models.StudyStats{TotalSessions: 3, TotalMinutes: 60}, stats)

	// Negative entries are stored as-is, no validation
	s.Require().NoError(s.store.LogStudyMinutes(ctx, "s1", -5))
	stats, err = s.store.StudyStats(ctx, "s1")
	s.Require().NoError(err)
	s.Equal(models.StudyStats{TotalSessions: 4, TotalMinutes: 55}, stats)
}

// TestDeleteSession wipes all three sub-records.
func (s *SessionStoreSuite) TestDeleteSession() {
	ctx := context.Background()

	s.Require().NoError(s.store.AppendMessage(ctx, "s1", models.RoleUser, "hello"))
	_, err := s.store.UpsertTask(ctx, "s1", models.Task{Title: "a task"})
	s.Require().NoError(err)
	s.Require().NoError(s.store.LogStudyMinutes(ctx, "s1", 25))

	s.Require().NoError(s.store.DeleteSession(ctx, "s1"))

	history, err := s.store.FullHistory(ctx, "s1")
	s.Require().NoError(err)
	s.Empty(history)

	tasks, err := s.store.ListTasks(ctx, "s1")
	s.Require().NoError(err)
	s.Empty(tasks)

	stats, err := s.store.StudyStats(ctx, "s1")
	s.Require().NoError(err)
	s.Equal(models.StudyStats{}, stats)
}

// TestUnavailable verifies connection failures surface as ErrUnavailable
// instead of empty defaults.
func TestUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	pool := NewPool(mr.Addr())
	s := New(pool, Options{})
	defer s.Close()

	ctx := context.Background()
	check := func(err error) {
		t.Helper()
		require.Error(t, err)
		require.ErrorIs(t, err, ErrUnavailable)
	}

	mr.Close()

	check(s.AppendMessage(ctx, "s1", models.RoleUser, "x"))
	_, err := s.FullHistory(ctx, "s1")
	check(err)
	_, err = s.ListTasks(ctx, "s1")
	check(err)
	_, err = s.StudyStats(ctx, "s1")
	check(err)
	check(s.DeleteSession(ctx, "s1"))
}
