package model

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CapitalizationConfig configures the capitalization consistency method.
type CapitalizationConfig struct {
	MinMentions      int     `json:"min_mentions" yaml:"min_mentions"`
	MinMidSentence   int     `json:"min_mid_sentence" yaml:"min_mid_sentence"`
	FrequencyCeiling float64 `json:"frequency_ceiling" yaml:"frequency_ceiling"`
	TitleBoost       float64 `json:"title_boost" yaml:"title_boost"`
}

// StatisticalConfig configures the TF-ISF term ranker.
type StatisticalConfig struct {
	MinTFISF            float64 `json:"min_tfisf" yaml:"min_tfisf"`
	MinSentenceFreq     int     `json:"min_sentence_freq" yaml:"min_sentence_freq"`
	MaxSentenceFreqRate float64 `json:"max_sentence_freq_rate" yaml:"max_sentence_freq_rate"`
	ProminenceBoost     float64 `json:"prominence_boost" yaml:"prominence_boost"`
	MinMentions         int     `json:"min_mentions" yaml:"min_mentions"`
	TopK                int     `json:"top_k" yaml:"top_k"`
	SimilarityThreshold float64 `json:"similarity_threshold" yaml:"similarity_threshold"`
}

// EmbeddingsConfig configures the semantic clustering method.
type EmbeddingsConfig struct {
	ModelName           string  `json:"model_name" yaml:"model_name"`
	MinClusterSize      int     `json:"min_cluster_size" yaml:"min_cluster_size"`
	ClusterEpsilon      float64 `json:"cluster_epsilon" yaml:"cluster_epsilon"`
	SimilarityThreshold float64 `json:"similarity_threshold" yaml:"similarity_threshold"`
	ClusteredBase       float64 `json:"clustered_base" yaml:"clustered_base"`
	SingletonBase       float64 `json:"singleton_base" yaml:"singleton_base"`
	DetectNarrator      bool    `json:"detect_narrator" yaml:"detect_narrator"`
	DetectRoles         bool    `json:"detect_roles" yaml:"detect_roles"`
	NarratorMinMentions int     `json:"narrator_min_mentions" yaml:"narrator_min_mentions"`
	NarratorConfidence  float64 `json:"narrator_confidence" yaml:"narrator_confidence"`
	RoleMinMatches      int     `json:"role_min_matches" yaml:"role_min_matches"`
	RoleConfidence      float64 `json:"role_confidence" yaml:"role_confidence"`
}

// EnsembleConfig configures the voting and conflict-resolution engine.
type EnsembleConfig struct {
	MethodWeights map[string]float64 `json:"method_weights" yaml:"method_weights"`

	MinMentions int `json:"min_mentions" yaml:"min_mentions"`

	// Adaptive confidence floors by name shape.
	SingleWordConfidence float64 `json:"single_word_confidence" yaml:"single_word_confidence"`
	MultiWordConfidence  float64 `json:"multi_word_confidence" yaml:"multi_word_confidence"`
	RoleBasedConfidence  float64 `json:"role_based_confidence" yaml:"role_based_confidence"`

	// Single-method acceptance bars and discounts.
	EmbeddingsOnlyBar       float64 `json:"embeddings_only_bar" yaml:"embeddings_only_bar"`
	EmbeddingsOnlyDiscount  float64 `json:"embeddings_only_discount" yaml:"embeddings_only_discount"`
	SpecialCaseDiscount     float64 `json:"special_case_discount" yaml:"special_case_discount"`
	StatisticalOnlyBar      float64 `json:"statistical_only_bar" yaml:"statistical_only_bar"`
	StatisticalOnlyDiscount float64 `json:"statistical_only_discount" yaml:"statistical_only_discount"`
}

// Config is the full pipeline configuration. It is passed explicitly into
// every component constructor; nothing reads it through globals.
type Config struct {
	MinDocumentLength int `json:"min_document_length" yaml:"min_document_length"`

	Capitalization CapitalizationConfig `json:"capitalization" yaml:"capitalization"`
	Statistical    StatisticalConfig    `json:"statistical" yaml:"statistical"`
	Embeddings     EmbeddingsConfig     `json:"embeddings" yaml:"embeddings"`
	Ensemble       EnsembleConfig       `json:"ensemble" yaml:"ensemble"`

	// Relationship extraction supplement.
	ProximityWindow int `json:"proximity_window" yaml:"proximity_window"`
}

// DefaultConfig returns the tuned default configuration.
func DefaultConfig() *Config {
	return &Config{
		MinDocumentLength: 50,
		Capitalization: CapitalizationConfig{
			MinMentions:      3,
			MinMidSentence:   2,
			FrequencyCeiling: 50.0,
			TitleBoost:       0.1,
		},
		Statistical: StatisticalConfig{
			MinTFISF:            0.015,
			MinSentenceFreq:     2,
			MaxSentenceFreqRate: 0.8,
			ProminenceBoost:     0.1,
			MinMentions:         2,
			TopK:                15,
			SimilarityThreshold: 0.6,
		},
		Embeddings: EmbeddingsConfig{
			ModelName:           "sentence-transformers/all-MiniLM-L6-v2",
			MinClusterSize:      2,
			ClusterEpsilon:      0.9,
			SimilarityThreshold: 0.7,
			ClusteredBase:       0.85,
			SingletonBase:       0.60,
			DetectNarrator:      true,
			DetectRoles:         true,
			NarratorMinMentions: 20,
			NarratorConfidence:  0.75,
			RoleMinMatches:      3,
			RoleConfidence:      0.70,
		},
		Ensemble: EnsembleConfig{
			MethodWeights: map[string]float64{
				MethodCapitalization: 0.30,
				MethodStatistical:    0.30,
				MethodEmbeddings:     0.40,
			},
			MinMentions:             2,
			SingleWordConfidence:    0.75,
			MultiWordConfidence:     0.60,
			RoleBasedConfidence:     0.50,
			EmbeddingsOnlyBar:       0.7,
			EmbeddingsOnlyDiscount:  0.80,
			SpecialCaseDiscount:     0.75,
			StatisticalOnlyBar:      0.85,
			StatisticalOnlyDiscount: 0.70,
		},
		ProximityWindow: 10,
	}
}

// LoadConfig reads a YAML configuration file over the defaults, so a file
// only needs to set the values it changes.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return config, nil
}

// Validate checks the configuration at pipeline construction time. Invalid
// weights or thresholds must fail here, never mid-extraction.
func (c *Config) Validate() error {
	if len(c.Ensemble.MethodWeights) == 0 {
		return fmt.Errorf("ensemble method weights must not be empty")
	}
	weightSum := 0.0
	for method, w := range c.Ensemble.MethodWeights {
		if w < 0 || w > 1 {
			return fmt.Errorf("weight for method %q must be in [0,1], got %v", method, w)
		}
		weightSum += w
	}
	if weightSum <= 0 {
		return fmt.Errorf("ensemble method weights must sum to a positive value")
	}
	for name, v := range map[string]float64{
		"single_word_confidence":    c.Ensemble.SingleWordConfidence,
		"multi_word_confidence":     c.Ensemble.MultiWordConfidence,
		"role_based_confidence":     c.Ensemble.RoleBasedConfidence,
		"embeddings_only_bar":       c.Ensemble.EmbeddingsOnlyBar,
		"embeddings_only_discount":  c.Ensemble.EmbeddingsOnlyDiscount,
		"special_case_discount":     c.Ensemble.SpecialCaseDiscount,
		"statistical_only_bar":      c.Ensemble.StatisticalOnlyBar,
		"statistical_only_discount": c.Ensemble.StatisticalOnlyDiscount,
		"max_sentence_freq_rate":    c.Statistical.MaxSentenceFreqRate,
		"clustered_base":            c.Embeddings.ClusteredBase,
		"singleton_base":            c.Embeddings.SingletonBase,
		"narrator_confidence":       c.Embeddings.NarratorConfidence,
		"role_confidence":           c.Embeddings.RoleConfidence,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0,1], got %v", name, v)
		}
	}
	if c.Capitalization.MinMentions < 1 {
		return fmt.Errorf("capitalization min_mentions must be at least 1")
	}
	if c.Statistical.TopK < 1 {
		return fmt.Errorf("statistical top_k must be at least 1")
	}
	if c.Embeddings.MinClusterSize < 1 {
		return fmt.Errorf("embeddings min_cluster_size must be at least 1")
	}
	if c.ProximityWindow < 1 {
		return fmt.Errorf("proximity_window must be at least 1")
	}
	return nil
}
