package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/mentor/pkg/models"
)

// fakeStore records appends and serves scripted history.
type fakeStore struct {
	history  []models.ChatMessage
	appends  []models.ChatMessage
	appendTo []string
	err      error
}

func (f *fakeStore) RecentContext(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	if sessionID == "" {
		return nil, nil
	}
	return f.history, nil
}

func (f *fakeStore) AppendMessage(ctx context.Context, sessionID, role, content string) error {
	if f.err != nil {
		return f.err
	}
	f.appends = append(f.appends, models.ChatMessage{Role: role, Content: content})
	f.appendTo = append(f.appendTo, sessionID)
	return nil
}

// fakeGateway scripts one outcome per provider slot and mimics the real
// rotation bookkeeping.
type fakeGateway struct {
	replies     []string // empty string means that provider fails
	idx         int
	credentials bool
	systems     []string
	prompts     []string
}

func (f *fakeGateway) HasCredentials() bool { return f.credentials }
func (f *fakeGateway) ProviderCount() int   { return len(f.replies) }
func (f *fakeGateway) Advance()             { f.idx = (f.idx + 1) % len(f.replies) }

func (f *fakeGateway) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if !f.credentials {
		return "", errors.New("no provider credentials configured")
	}
	f.systems = append(f.systems, systemPrompt)
	f.prompts = append(f.prompts, userPrompt)
	reply := f.replies[f.idx]
	if reply == "" {
		f.Advance()
		return "", fmt.Errorf("provider %d down", f.idx)
	}
	return reply, nil
}

func (f *fakeGateway) CompleteWithRotation(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if !f.credentials {
		return "", errors.New("no provider credentials configured")
	}
	for attempt := 0; attempt < len(f.replies); attempt++ {
		if out, err := f.Complete(ctx, systemPrompt, userPrompt); err == nil {
			return out, nil
		}
	}
	return "", errors.New("all providers failed")
}

type fakeClassifier struct {
	intent models.Intent
}

func (f *fakeClassifier) Classify(ctx context.Context, utterance string) models.Intent {
	return f.intent
}

type fakeSearcher struct {
	results []models.SearchResult
	queries []string
}

func (f *fakeSearcher) Search(ctx context.Context, query string, max int) []models.SearchResult {
	f.queries = append(f.queries, query)
	return f.results
}

type fakeIndex struct {
	snippets []models.Snippet
	err      error
}

func (f *fakeIndex) Query(ctx context.Context, text string, k int) ([]models.Snippet, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.snippets) > k {
		return f.snippets[:k], nil
	}
	return f.snippets, nil
}

func testEngine(store *fakeStore, gw *fakeGateway, cls *fakeClassifier, search *fakeSearcher, index *fakeIndex) *Engine {
	cfg := Config{
		Store:      store,
		Gateway:    gw,
		Classifier: cls,
		Search:     search,
	}
	if index != nil {
		cfg.Index = index
	}
	return New(cfg)
}

func TestProcess_ChatSuccess(t *testing.T) {
	store := &fakeStore{history: []models.ChatMessage{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "hello!"},
	}}
	gw := &fakeGateway{credentials: true, replies: []string{"nice to chat"}}
	eng := testEngine(store, gw, &fakeClassifier{intent: models.IntentChat}, &fakeSearcher{}, nil)

	out, err := eng.Process(context.Background(), "how do goroutines work?", "Computer Science", "s1")
	require.NoError(t, err)
	assert.Equal(t, "nice to chat", out)

	// History and query are woven into the single generation prompt
	require.Len(t, gw.prompts, 1)
	assert.Contains(t, gw.prompts[0], "user: hi")
	assert.Contains(t, gw.prompts[0], "assistant: hello!")
	assert.Contains(t, gw.prompts[0], "User Query: how do goroutines work?")
	assert.Equal(t, chatInstruction, gw.systems[0])

	// Both sides of the exchange are persisted
	require.Len(t, store.appends, 2)
	assert.Equal(t, models.ChatMessage{Role: models.RoleUser, Content: "how do goroutines work?"}, store.appends[0])
	assert.Equal(t, models.ChatMessage{Role: models.RoleAssistant, Content: "nice to chat"}, store.appends[1])
	assert.Equal(t, []string{"s1", "s1"}, store.appendTo)
}

func TestProcess_SearchIntent(t *testing.T) {
	search := &fakeSearcher{results: []models.SearchResult{
		{Title: "SQL Tutorial", Link: "https://example.com/sql", Snippet: "joins and indexes"},
	}}
	gw := &fakeGateway{credentials: true, replies: []string{"here are resources"}}
	eng := testEngine(&fakeStore{}, gw, &fakeClassifier{intent: models.IntentSearch}, search, nil)

	_, err := eng.Process(context.Background(), "find sql tutorials", "Computer Science", "s1")
	require.NoError(t, err)

	// Search query combines department and user text
	require.Len(t, search.queries, 1)
	assert.Equal(t, "Computer Science find sql tutorials", search.queries[0])

	// Results are formatted as a labeled list under the search instruction
	assert.Equal(t, searchInstruction, gw.systems[0])
	assert.Contains(t, gw.prompts[0], "Web Search Results:")
	assert.Contains(t, gw.prompts[0], "- SQL Tutorial: joins and indexes (https://example.com/sql)")
}

func TestProcess_RoadmapIntent_WithSnippets(t *testing.T) {
	index := &fakeIndex{snippets: []models.Snippet{
		{Text: "Week one covers networking.", Source: "cyber.md"},
		{Text: "Then move to cryptography.", Source: "crypto.md"},
	}}
	gw := &fakeGateway{credentials: true, replies: []string{"your path"}}
	eng := testEngine(&fakeStore{}, gw, &fakeClassifier{intent: models.IntentRoadmap}, &fakeSearcher{}, index)

	_, err := eng.Process(context.Background(), "roadmap please", "Cyber Security", "s1")
	require.NoError(t, err)

	assert.Equal(t, roadmapInstruction, gw.systems[0])
	assert.Contains(t, gw.prompts[0], "User wants a roadmap for Cyber Security.")
	assert.Contains(t, gw.prompts[0], "[Source: cyber.md]\nWeek one covers networking.")
}

func TestProcess_RetrievalFailureIsInvisible(t *testing.T) {
	index := &fakeIndex{err: errors.New("index offline")}
	gw := &fakeGateway{credentials: true, replies: []string{"still fine"}}

	for _, intent := range []models.Intent{models.IntentRoadmap, models.IntentChat} {
		eng := testEngine(&fakeStore{}, gw, &fakeClassifier{intent: intent}, &fakeSearcher{}, index)
		out, err := eng.Process(context.Background(), "anything", "General", "s1")
		require.NoError(t, err)
		assert.Equal(t, "still fine", out)
	}
}

func TestProcess_AllProvidersFail(t *testing.T) {
	store := &fakeStore{}
	gw := &fakeGateway{credentials: true, replies: []string{"", "", ""}}
	eng := testEngine(store, gw, &fakeClassifier{intent: models.IntentRoadmap}, &fakeSearcher{}, nil)

	out, err := eng.Process(context.Background(), "I want a roadmap for Cyber Security", "Cyber Security", "s1")
	require.NoError(t, err, "exhaustion is recovered by the fallback payload, not raised")

	assert.NotEmpty(t, out)
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "User wants a roadmap for Cyber Security.",
		"gathered context is embedded so the user is not left with nothing")

	// The fallback exchange is persisted exactly like a successful one
	require.Len(t, store.appends, 2)
	assert.Equal(t, models.RoleUser, store.appends[0].Role)
	assert.Equal(t, "I want a roadmap for Cyber Security", store.appends[0].Content)
	assert.Equal(t, models.RoleAssistant, store.appends[1].Role)
	assert.Equal(t, out, store.appends[1].Content)
}

func TestProcess_NoSessionID_SkipsPersistence(t *testing.T) {
	store := &fakeStore{}
	gw := &fakeGateway{credentials: true, replies: []string{"ok"}}
	eng := testEngine(store, gw, &fakeClassifier{intent: models.IntentChat}, &fakeSearcher{}, nil)

	out, err := eng.Process(context.Background(), "hello", "General", "")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Empty(t, store.appends)
}

func TestProcess_SanitizesQuery(t *testing.T) {
	store := &fakeStore{}
	gw := &fakeGateway{credentials: true, replies: []string{"ok"}}
	eng := testEngine(store, gw, &fakeClassifier{intent: models.IntentChat}, &fakeSearcher{}, nil)

	_, err := eng.Process(context.Background(),
		"my key sk-or-v1-0123456789abcdef0123456789abcdef stopped working <private>acme corp</private>",
		"General", "s1")
	require.NoError(t, err)

	// Neither the provider prompt nor the transcript sees the raw input
	require.Len(t, gw.prompts, 1)
	assert.NotContains(t, gw.prompts[0], "sk-or-v1")
	assert.NotContains(t, gw.prompts[0], "acme corp")
	assert.Contains(t, gw.prompts[0], "[REDACTED]")
	require.Len(t, store.appends, 2)
	assert.NotContains(t, store.appends[0].Content, "sk-or-v1")
}

func TestProcess_EntirelyPrivateQuery(t *testing.T) {
	store := &fakeStore{}
	gw := &fakeGateway{credentials: true, replies: []string{"ok"}}
	eng := testEngine(store, gw, &fakeClassifier{intent: models.IntentChat}, &fakeSearcher{}, nil)

	out, err := eng.Process(context.Background(), "<private>all of this</private>", "General", "s1")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	assert.Empty(t, gw.prompts, "nothing is forwarded to providers")
	assert.Empty(t, store.appends, "nothing is persisted")
}

func TestProcess_StoreFailurePropagates(t *testing.T) {
	store := &fakeStore{err: errors.New("session store unavailable")}
	gw := &fakeGateway{credentials: true, replies: []string{"ok"}}
	eng := testEngine(store, gw, &fakeClassifier{intent: models.IntentChat}, &fakeSearcher{}, nil)

	_, err := eng.Process(context.Background(), "hello", "General", "s1")
	require.Error(t, err, "store failures must not be swallowed")
}
