// Package engine orchestrates the query-processing pipeline: session
// context, intent classification, context gathering, generation with
// provider failover, and persistence of the exchange.
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/mentor/internal/privacy"
	"github.com/thebtf/mentor/internal/retrieval"
	"github.com/thebtf/mentor/internal/telemetry"
	"github.com/thebtf/mentor/pkg/models"
)

// Context gathering bounds per intent branch.
const (
	searchResultCount   = 3
	roadmapSnippetCount = 3
	chatSnippetCount    = 2
)

// Fixed generation instructions per intent.
const (
	searchInstruction  = "You are a helpful assistant. Use the provided search results to answer the user."
	roadmapInstruction = "You are a mentor. Use the provided roadmap context to outline a learning path."
	chatInstruction    = "You are a friendly AI mentor. Answer directly, using the conversation history for context."
)

// SessionStore is the session state surface the pipeline reads and writes.
type SessionStore interface {
	RecentContext(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error)
	AppendMessage(ctx context.Context, sessionID, role, content string) error
}

// Gateway is the completion surface with provider rotation.
type Gateway interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	CompleteWithRotation(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	HasCredentials() bool
	ProviderCount() int
	Advance()
}

// Classifier assigns an intent to an utterance.
type Classifier interface {
	Classify(ctx context.Context, utterance string) models.Intent
}

// Searcher is the web-search collaborator. It degrades internally and never
// fails.
type Searcher interface {
	Search(ctx context.Context, query string, max int) []models.SearchResult
}

// Config wires an Engine.
type Config struct {
	Store      SessionStore
	Gateway    Gateway
	Classifier Classifier
	Search     Searcher
	Index      retrieval.Index // nil disables retrieval enrichment
	Metrics    *telemetry.Metrics

	// ContextLimit is how many trailing messages feed the prompt.
	ContextLimit int
}

// Engine runs the pipeline. Each invocation executes its stages strictly
// sequentially; there is no fan-out across providers or context branches.
type Engine struct {
	store        SessionStore
	gateway      Gateway
	classifier   Classifier
	search       Searcher
	index        retrieval.Index
	metrics      *telemetry.Metrics
	contextLimit int
}

// New creates an Engine.
func New(cfg Config) *Engine {
	if cfg.ContextLimit <= 0 {
		cfg.ContextLimit = 10
	}
	return &Engine{
		store:        cfg.Store,
		gateway:      cfg.Gateway,
		classifier:   cfg.Classifier,
		search:       cfg.Search,
		index:        cfg.Index,
		metrics:      cfg.Metrics,
		contextLimit: cfg.ContextLimit,
	}
}

// Process answers one user query. It always returns a usable payload when
// generation fails (a labeled fallback embedding the gathered context);
// only store failures propagate as errors, since silently losing session
// data is worse than reporting it.
func (e *Engine) Process(ctx context.Context, query, department, sessionID string) (string, error) {
	// Sanitize before anything sees the query: private spans and pasted
	// credentials must reach neither providers nor the transcript.
	query = privacy.Clean(query)
	if query == "" {
		return "Your message contained only private content, so nothing was processed.", nil
	}

	history, err := e.store.RecentContext(ctx, sessionID, e.contextLimit)
	if err != nil {
		return "", fmt.Errorf("load context: %w", err)
	}

	intent := e.classifier.Classify(ctx, query)
	log.Info().
		Str("sessionId", sessionID).
		Str("department", department).
		Str("intent", string(intent)).
		Msg("Processing query")
	e.metrics.Query(ctx, string(intent))

	instruction, external := e.gatherContext(ctx, intent, query, department)

	prompt := fmt.Sprintf("History:\n%s\n\nContext:\n%s\n\nUser Query: %s",
		formatHistory(history), external, query)

	reply, err := e.gateway.CompleteWithRotation(ctx, instruction, prompt)
	if err != nil {
		log.Warn().Err(err).Msg("Generation failed on every provider, returning fallback")
		reply = fallbackReply(external)
	}

	if sessionID != "" {
		if err := e.store.AppendMessage(ctx, sessionID, models.RoleUser, query); err != nil {
			return "", fmt.Errorf("persist user message: %w", err)
		}
		if err := e.store.AppendMessage(ctx, sessionID, models.RoleAssistant, reply); err != nil {
			return "", fmt.Errorf("persist assistant message: %w", err)
		}
	}
	return reply, nil
}

// gatherContext collects the intent-appropriate external context. Search
// never fails; retrieval is best-effort and its failures stay invisible to
// the user.
func (e *Engine) gatherContext(ctx context.Context, intent models.Intent, query, department string) (instruction, external string) {
	switch intent {
	case models.IntentSearch:
		results := e.search.Search(ctx, department+" "+query, searchResultCount)
		var b strings.Builder
		b.WriteString("Web Search Results:")
		for _, r := range results {
			fmt.Fprintf(&b, "\n- %s: %s (%s)", r.Title, r.Snippet, r.Link)
		}
		return searchInstruction, b.String()

	case models.IntentRoadmap:
		external = fmt.Sprintf("User wants a roadmap for %s.", department)
		if snippets := e.queriedSnippets(ctx, query, roadmapSnippetCount, true); len(snippets) > 0 {
			var b strings.Builder
			for i, sn := range snippets {
				if i > 0 {
					b.WriteString("\n\n")
				}
				fmt.Fprintf(&b, "[Source: %s]\n%s", sn.Source, sn.Text)
			}
			external += "\n\nRoadmap Context (Retrieved):\n" + b.String()
		}
		return roadmapInstruction, external

	default:
		external = "General conversation."
		if snippets := e.queriedSnippets(ctx, query, chatSnippetCount, false); len(snippets) > 0 {
			lines := make([]string, len(snippets))
			for i, sn := range snippets {
				lines[i] = sn.Text
			}
			external += "\n\nRelevant Context:\n" + strings.Join(lines, "\n")
		}
		return chatInstruction, external
	}
}

// queriedSnippets queries the retrieval index, logging failures only when
// asked; context gathering proceeds with whatever was obtained.
func (e *Engine) queriedSnippets(ctx context.Context, query string, k int, logFailure bool) []models.Snippet {
	if e.index == nil {
		return nil
	}
	snippets, err := e.index.Query(ctx, query, k)
	if err != nil {
		if logFailure {
			log.Warn().Err(err).Msg("Retrieval failed, continuing without snippets")
		}
		return nil
	}
	return snippets
}

// formatHistory renders the transcript as role-prefixed lines.
func formatHistory(history []models.ChatMessage) string {
	lines := make([]string, len(history))
	for i, msg := range history {
		lines[i] = msg.Role + ": " + msg.Content
	}
	return strings.Join(lines, "\n")
}

// fallbackReply is the synthesized payload returned when every provider
// failed. The gathered context is embedded so the user is not left with
// nothing.
func fallbackReply(external string) string {
	return "All AI providers failed. Please try again later.\n\nBased on the gathered context:\n\n" + external
}
