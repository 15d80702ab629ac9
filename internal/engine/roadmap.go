package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/mentor/pkg/models"
)

// roadmapPrompt demands strict JSON and steers resource links away from
// deep-linked videos, which rot; channel and search URLs survive.
const roadmapPrompt = "Generate a detailed 4-week structured learning roadmap for %s at %s level. " +
	"Ensure you provide content for ALL 4 WEEKS. " +
	"For resources, prioritize official documentation and free article sites. " +
	"DO NOT generate specific video URLs (like 'youtube.com/watch?v=...') as they often break. " +
	"Instead, link to the channel or a generic search URL (e.g. 'https://www.youtube.com/results?search_query=...'). " +
	"Output strictly valid JSON with this structure: " +
	`{"title": "...", "modules": [{"week": 1, "topic": "...", "description": "...", "resources": [{"title": "...", "link": "..."}]}]}. ` +
	"Do not add markdown formatting like ```json, just return the raw JSON object."

// GenerateRoadmap builds a structured curriculum, attempting each provider
// once in rotation. An unparseable response counts against its provider the
// same as a transport failure. The result is always usable: exhaustion and
// missing credentials yield a placeholder document flagged as failed, never
// an error.
func (e *Engine) GenerateRoadmap(ctx context.Context, department, level string) *models.Roadmap {
	if !e.gateway.HasCredentials() {
		return fallbackRoadmap(department)
	}

	prompt := fmt.Sprintf(roadmapPrompt, department, level)

	for attempt := 0; attempt < e.gateway.ProviderCount(); attempt++ {
		raw, err := e.gateway.Complete(ctx, "", prompt)
		if err != nil {
			continue
		}

		var roadmap models.Roadmap
		if err := json.Unmarshal([]byte(stripFences(raw)), &roadmap); err != nil {
			log.Warn().Err(err).Msg("Roadmap response unparseable, rotating provider")
			e.gateway.Advance()
			continue
		}
		return &roadmap
	}

	return fallbackRoadmap(department)
}

// stripFences removes a leading/trailing fenced-code wrapper, tolerating an
// optional language tag after the opening fence. Unfenced input passes
// through untouched.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

// fallbackRoadmap is the minimal one-week placeholder returned when
// generation fails outright.
func fallbackRoadmap(department string) *models.Roadmap {
	return &models.Roadmap{
		Title:            department + " (Fallback)",
		GenerationFailed: true,
		Modules: []models.RoadmapModule{
			{
				Week:        1,
				Topic:       "Basics",
				Description: "Roadmap generation failed, please try again.",
				Resources:   []models.Resource{},
			},
		},
	}
}
