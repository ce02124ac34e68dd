// Package extract implements the three unsupervised entity extraction
// methods: capitalization consistency scoring, TF-ISF statistical ranking
// and semantic embedding clustering. Each method reads the same immutable
// candidate index and produces an independent MethodResult for the ensemble.
package extract

import "github.com/siherrmann/storygraph/model"

// Extractor is the common contract of all extraction methods. Extract never
// mutates the index and never panics; a method that cannot do its full job
// degrades to a simpler heuristic and still returns a well-formed result.
type Extractor interface {
	Name() string
	Extract(index *model.CandidateIndex) (*model.MethodResult, error)
}

// EmbedFunc is a function that generates embeddings for text
type EmbedFunc func(text string) ([]float32, error)
