// Package intent classifies user utterances into the pipeline's three
// intent categories.
package intent

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/mentor/pkg/models"
)

// systemPrompt instructs the model to answer with a single category word.
const systemPrompt = "You are the brain of an educational assistant. " +
	"Classify the user's input into exactly one of these categories:\n" +
	"1. 'roadmap': the user wants a study plan, path, or curriculum.\n" +
	"2. 'search': the user asks for specific resources, links, or factual lookup.\n" +
	"3. 'chat': general conversation, greetings, or open-ended questions.\n" +
	"Output ONLY the category name."

// Completer is the single-attempt completion surface the classifier needs.
// Classification is not worth a multi-provider retry, so it uses one attempt
// and falls back to keywords on failure.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	HasCredentials() bool
}

// Classifier assigns an intent to each utterance.
type Classifier struct {
	gw Completer
}

// New creates a Classifier backed by the given completer.
func New(gw Completer) *Classifier {
	return &Classifier{gw: gw}
}

// Classify returns the intent for an utterance. It never fails: without
// credentials the safe default is chat, and a failed model call falls
// through to the keyword heuristic.
func (c *Classifier) Classify(ctx context.Context, utterance string) models.Intent {
	if c.gw == nil || !c.gw.HasCredentials() {
		return models.IntentChat
	}

	answer, err := c.gw.Complete(ctx, systemPrompt, utterance)
	if err != nil {
		log.Debug().Err(err).Msg("Intent model call failed, using keyword heuristic")
		return keywordIntent(utterance)
	}

	answer = strings.ToLower(strings.TrimSpace(answer))
	if strings.Contains(answer, "roadmap") {
		return models.IntentRoadmap
	}
	if strings.Contains(answer, "search") {
		return models.IntentSearch
	}
	return models.IntentChat
}

// keywordIntent is the hand-coded fallback applied when the model call
// fails.
func keywordIntent(utterance string) models.Intent {
	q := strings.ToLower(utterance)
	switch {
	case strings.Contains(q, "roadmap"), strings.Contains(q, "plan"), strings.Contains(q, "path"):
		return models.IntentRoadmap
	case strings.Contains(q, "find"), strings.Contains(q, "search"),
		strings.Contains(q, "tutorial"), strings.Contains(q, "resource"):
		return models.IntentSearch
	default:
		return models.IntentChat
	}
}
