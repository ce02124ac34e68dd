package model

import (
	"encoding/json"
	"os"
	"time"
)

// MethodContribution counts how often a method detected entities on its own
// versus together with other methods.
type MethodContribution struct {
	Total  int `json:"total"`
	Unique int `json:"unique"`
	Shared int `json:"shared"`
}

// ConfidenceDistribution is a histogram of final entity confidences.
type ConfidenceDistribution struct {
	VeryHigh int `json:"very_high"` // >= 0.9
	High     int `json:"high"`      // [0.8, 0.9)
	Medium   int `json:"medium"`    // [0.6, 0.8)
	Low      int `json:"low"`       // < 0.6
}

// EnsembleStatistics are the diagnostics emitted by the voter.
type EnsembleStatistics struct {
	TotalEntities     int                           `json:"total_entities"`
	AverageConfidence float64                       `json:"average_confidence"`
	Distribution      ConfidenceDistribution        `json:"confidence_distribution"`
	DetectionCounts   map[int]int                   `json:"detection_counts"`
	MethodCandidates  map[string]int                `json:"method_candidates"`
	Contributions     map[string]MethodContribution `json:"method_contributions"`
}

// PipelineResult is the complete output for one processed document.
type PipelineResult struct {
	Title         string                     `json:"title"`
	Source        string                     `json:"source,omitempty"`
	SentenceCount int                        `json:"sentence_count"`
	Entities      []*Entity                  `json:"entities"`
	Traits        map[string]*TraitProfile   `json:"traits,omitempty"`
	Relations     []*Relation                `json:"relations,omitempty"`
	Graph         *CharacterGraph            `json:"graph,omitempty"`
	MethodResults map[string]*MethodResult   `json:"method_results,omitempty"`
	Alignment     map[string]*AlignmentEntry `json:"alignment,omitempty"`
	Statistics    EnsembleStatistics         `json:"statistics"`
	ProcessedAt   time.Time                  `json:"processed_at"`
}

// WriteJSON serializes the result to an indented JSON file.
func (r *PipelineResult) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// BatchItem is the per-document outcome of a batch run: either a result or
// an explicit failure marker. One bad document never aborts the batch.
type BatchItem struct {
	Source string          `json:"source"`
	Result *PipelineResult `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Failed reports whether this document failed.
func (b *BatchItem) Failed() bool {
	return b.Error != ""
}

// BatchResult aggregates a multi-document run.
type BatchResult struct {
	Items     []*BatchItem `json:"items"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
}
