package extract

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/siherrmann/storygraph/model"
)

// titlePatterns match surface forms that are near-certain character
// references ("Mr. Dillingham", "The Old Man").
var titlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(Mr|Mrs|Miss|Ms|Dr|Sir|Madam|Mme)\.?\s+\w+`),
	regexp.MustCompile(`^The\s+[A-Z]\w+(\s+[A-Z]\w+)*$`),
}

// CapitalizationExtractor scores candidates by how reliably they appear
// capitalized outside sentence-initial position.
type CapitalizationExtractor struct {
	config model.CapitalizationConfig
	logger *slog.Logger
}

// NewCapitalizationExtractor creates the capitalization consistency method.
func NewCapitalizationExtractor(config model.CapitalizationConfig, logger *slog.Logger) *CapitalizationExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &CapitalizationExtractor{config: config, logger: logger}
}

// Name returns the method identifier.
func (e *CapitalizationExtractor) Name() string {
	return model.MethodCapitalization
}

// Extract runs the method over the candidate index. It never returns an
// error; an empty index yields an empty result.
func (e *CapitalizationExtractor) Extract(index *model.CandidateIndex) (*model.MethodResult, error) {
	result := model.EmptyMethodResult(e.Name())

	candidates := e.scoreCandidates(index)
	e.logger.Debug("scored capitalization candidates", "count", len(candidates))

	candidates = e.mergeNgrams(candidates, index)
	candidates = filterBlacklisted(candidates)

	sortByScore(candidates)
	result.Candidates = candidates
	result.ComputeStatistics()
	return result, nil
}

func (e *CapitalizationExtractor) scoreCandidates(index *model.CandidateIndex) []*model.ScoredCandidate {
	names := index.AllCandidates()
	candidates := make([]*model.ScoredCandidate, 0, len(names))

	for _, name := range names {
		stats := index.Stats[name]
		if stats == nil || stats.TotalMentions < e.config.MinMentions {
			continue
		}
		// Sentence-initial capitalization alone is no signal, any word is
		// capitalized there.
		if stats.MidSentenceCount < e.config.MinMidSentence {
			continue
		}

		candidates = append(candidates, &model.ScoredCandidate{
			Name:     name,
			Score:    e.score(stats),
			Mentions: stats.TotalMentions,
			Metadata: model.Metadata{
				"consistency":          stats.ConsistencyScore(),
				"mid_sentence_ratio":   float64(stats.MidSentenceCount) / float64(stats.TotalMentions),
				"capitalization_ratio": float64(stats.CapitalizedMentions) / float64(stats.TotalMentions),
				"has_title":            e.hasTitlePattern(name),
			},
		})
	}

	for _, c := range candidates {
		if c.Metadata["has_title"] == true {
			c.Score = clamp01(c.Score + e.config.TitleBoost)
		}
	}
	return candidates
}

// score blends capitalization consistency, normalized frequency and
// mid-sentence ratio into one [0,1] value.
func (e *CapitalizationExtractor) score(stats *model.CandidateStats) float64 {
	consistency := stats.ConsistencyScore()
	frequency := min(float64(stats.TotalMentions)/e.config.FrequencyCeiling, 1.0)
	midRatio := float64(stats.MidSentenceCount) / float64(stats.TotalMentions)

	return clamp01(0.4*consistency + 0.3*frequency + 0.3*midRatio)
}

func (e *CapitalizationExtractor) hasTitlePattern(name string) bool {
	for _, pattern := range titlePatterns {
		if pattern.MatchString(name) {
			return true
		}
	}
	return false
}

// mergeNgrams folds single-token candidates into a detected multi-word form
// covering them, so "James", "Dillingham" and "Young" collapse into
// "James Dillingham Young". Trigrams claim their parts before bigrams.
func (e *CapitalizationExtractor) mergeNgrams(candidates []*model.ScoredCandidate, index *model.CandidateIndex) []*model.ScoredCandidate {
	partToFullName := make(map[string]string)
	for _, ngrams := range [][]string{index.Trigrams, index.Bigrams} {
		for _, ngram := range ngrams {
			for _, part := range splitWords(ngram) {
				if _, ok := partToFullName[part]; !ok {
					partToFullName[part] = ngram
				}
			}
		}
	}

	merged := make(map[string]*model.ScoredCandidate)
	var order []string

	for _, candidate := range candidates {
		name := candidate.Name
		fullName, isPart := partToFullName[name]
		if !isPart {
			if _, ok := merged[name]; !ok {
				merged[name] = candidate
				order = append(order, name)
			}
			continue
		}

		existing, ok := merged[fullName]
		if !ok {
			absorbed := *candidate
			absorbed.Name = fullName
			absorbed.Metadata = candidate.Metadata.Copy()
			absorbed.Metadata["merged_from"] = []string{name}
			merged[fullName] = &absorbed
			order = append(order, fullName)
			continue
		}
		existing.Mentions += candidate.Mentions
		existing.Metadata["merged_from"] = append(existing.Metadata["merged_from"].([]string), name)
	}

	out := make([]*model.ScoredCandidate, 0, len(order))
	for _, name := range order {
		out = append(out, merged[name])
	}
	return out
}

func filterBlacklisted(candidates []*model.ScoredCandidate) []*model.ScoredCandidate {
	filtered := make([]*model.ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		if !IsBlacklisted(c.Name) {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// sortByScore orders candidates by score descending, name ascending on
// ties, keeping method output deterministic.
func sortByScore(candidates []*model.ScoredCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Name < candidates[j].Name
	})
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func splitWords(name string) []string {
	return strings.Fields(name)
}
