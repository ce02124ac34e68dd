package model

import (
	"time"

	"github.com/google/uuid"
)

// Method identifiers for the three extraction strategies.
const (
	MethodCapitalization = "capitalization"
	MethodStatistical    = "tfisf"
	MethodEmbeddings     = "embeddings"
)

// ScoredCandidate is one candidate as scored by a single extraction method.
// Scores are method-local and not comparable across methods before the
// ensemble weighting step.
type ScoredCandidate struct {
	Name     string   `json:"name"`
	Score    float64  `json:"score"`
	Mentions int      `json:"mentions"`
	Metadata Metadata `json:"metadata,omitempty"`
}

// MethodStatistics summarizes one method's output.
type MethodStatistics struct {
	TotalCandidates int     `json:"total_candidates"`
	AverageScore    float64 `json:"average_score"`
	MaxScore        float64 `json:"max_score"`
}

// MethodResult is the complete output of one extraction method for one
// document. Created fresh per invocation, consumed only by the ensemble
// voter, never mutated after return.
type MethodResult struct {
	MethodName string             `json:"method_name"`
	Candidates []*ScoredCandidate `json:"candidates"`
	Statistics MethodStatistics   `json:"statistics"`
}

// EmptyMethodResult returns a well-formed result with no candidates, used
// when a method degraded or errored so the ensemble can still proceed.
func EmptyMethodResult(methodName string) *MethodResult {
	return &MethodResult{
		MethodName: methodName,
		Candidates: []*ScoredCandidate{},
	}
}

// ComputeStatistics fills the aggregate statistics from the candidate list.
func (r *MethodResult) ComputeStatistics() {
	r.Statistics = MethodStatistics{TotalCandidates: len(r.Candidates)}
	if len(r.Candidates) == 0 {
		return
	}
	sum := 0.0
	for _, c := range r.Candidates {
		sum += c.Score
		if c.Score > r.Statistics.MaxScore {
			r.Statistics.MaxScore = c.Score
		}
	}
	r.Statistics.AverageScore = sum / float64(len(r.Candidates))
}

// AlignmentEntry maps one canonical entity name to the per-method candidate
// names judged to denote the same character.
type AlignmentEntry struct {
	CanonicalName string              `json:"canonical_name"`
	Matches       map[string][]string `json:"matches"`
	DetectedBy    []string            `json:"detected_by"`
	AllVariants   []string            `json:"all_variants"`
}

// SentenceContext references one sentence an entity is mentioned in.
type SentenceContext struct {
	SentenceID int    `json:"sentence_id"`
	Sentence   string `json:"sentence"`
}

// Entity is a resolved character, the final output unit of the ensemble.
type Entity struct {
	ID             uuid.UUID          `json:"id"`
	DocumentRID    uuid.UUID          `json:"document_rid,omitempty"`
	Name           string             `json:"name"`
	Confidence     float64            `json:"confidence"`
	Mentions       int                `json:"mentions"`
	DetectedBy     []string           `json:"detected_by"`
	DetectionCount int                `json:"detection_count"`
	Variants       []string           `json:"variants"`
	MethodScores   map[string]float64 `json:"method_scores,omitempty"`
	Contexts       []SentenceContext  `json:"contexts,omitempty"`
	Embedding      []float32          `json:"embedding,omitempty"`
	Similarity     float64            `json:"similarity,omitempty"`
	Metadata       Metadata           `json:"metadata,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
}

// DetectedByMethod reports whether the given method contributed to this
// entity.
func (e *Entity) DetectedByMethod(method string) bool {
	for _, m := range e.DetectedBy {
		if m == method {
			return true
		}
	}
	return false
}
