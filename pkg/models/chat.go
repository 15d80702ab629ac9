// Package models contains domain models for mentor.
package models

// Message roles stored in a session transcript.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single entry in a session's transcript.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Intent is the classified purpose of a user utterance.
type Intent string

const (
	IntentRoadmap Intent = "roadmap"
	IntentSearch  Intent = "search"
	IntentChat    Intent = "chat"
)

// SearchResult is one web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Snippet is a passage returned by the retrieval index, tagged with the
// document it came from.
type Snippet struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}
