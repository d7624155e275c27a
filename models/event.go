package models

import (
	"math"
	"time"
)

// CrawlRecord is one page returned by the crawling service.
// Records are written once per crawl run and never modified.
type CrawlRecord struct {
	URL      string         `json:"url"`
	HTML     string         `json:"html"`
	Index    int            `json:"index"`
	Domain   string         `json:"domain"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// EventCandidate is a URL and HTML pair under evaluation.
type EventCandidate struct {
	URL  string
	HTML string
}

// ClassificationResult is the singularity classifier's verdict.
// RelevantHTML is nil when IsSingular is false and non-nil when it is true.
type ClassificationResult struct {
	IsSingular   bool    `json:"is_singular" yaml:"is_singular"`
	RelevantHTML *string `json:"relevant_html" yaml:"relevant_html"`
}

// ExtractionResult holds the structured fields of an event page.
type ExtractionResult struct {
	Title       string  `json:"title" yaml:"title"`
	Description string  `json:"description" yaml:"description"`
	Location    string  `json:"location" yaml:"location"`
	StartTime   *string `json:"start_time" yaml:"start_time"`
	EndTime     *string `json:"end_time" yaml:"end_time"`
}

// Fields returns the extraction as a plain field mapping, suitable for the
// similarity scorer. Absent times are omitted.
func (e ExtractionResult) Fields() map[string]any {
	m := map[string]any{
		"title":       e.Title,
		"description": e.Description,
		"location":    e.Location,
	}
	if e.StartTime != nil {
		m["start_time"] = *e.StartTime
	}
	if e.EndTime != nil {
		m["end_time"] = *e.EndTime
	}
	return m
}

// StartAt parses StartTime relative to ref. Returns zero time if absent or unparseable.
func (e ExtractionResult) StartAt(ref time.Time) time.Time {
	if e.StartTime == nil {
		return time.Time{}
	}
	t, err := ParseEventTime(*e.StartTime, ref)
	if err != nil {
		return time.Time{}
	}
	return t
}

// EndAt parses EndTime relative to ref. Returns zero time if absent or unparseable.
func (e ExtractionResult) EndAt(ref time.Time) time.Time {
	if e.EndTime == nil {
		return time.Time{}
	}
	t, err := ParseEventTime(*e.EndTime, ref)
	if err != nil {
		return time.Time{}
	}
	return t
}

// EvaluationResult scores an extraction against the source page.
type EvaluationResult struct {
	Score     float64 `json:"score" yaml:"score"`
	Reasoning string  `json:"reasoning" yaml:"reasoning"`
}

// SimilarityResult compares two field mappings.
type SimilarityResult struct {
	Similarity float64 `json:"similarity" yaml:"similarity"`
}

// ClampScore bounds a model-produced score to [0,1]. NaN maps to 0.
func ClampScore(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

// StringPtr is a small helper for optional string fields.
func StringPtr(s string) *string {
	return &s
}
