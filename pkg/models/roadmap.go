package models

// Roadmap is a structured multi-week curriculum produced by the roadmap
// generator. GenerationFailed marks the placeholder document returned when
// no provider produced a parseable roadmap.
type Roadmap struct {
	Title            string          `json:"title"`
	Modules          []RoadmapModule `json:"modules"`
	GenerationFailed bool            `json:"generation_failed,omitempty"`
}

// RoadmapModule is one week of a roadmap.
type RoadmapModule struct {
	Week        int        `json:"week"`
	Topic       string     `json:"topic"`
	Description string     `json:"description"`
	Resources   []Resource `json:"resources"`
}

// Resource is a titled link attached to a roadmap module.
type Resource struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}
