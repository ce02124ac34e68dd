package extract

import (
	"log/slog"
	"math"
	"regexp"
	"strings"

	"github.com/siherrmann/storygraph/model"
)

var possessiveRe = regexp.MustCompile(`'?s$`)

// StatisticalExtractor ranks candidates by TF-ISF, the sentence-granularity
// analog of TF-IDF. A single short story is one document, so document
// frequency carries no information; sentence frequency does.
type StatisticalExtractor struct {
	config model.StatisticalConfig
	logger *slog.Logger
}

// NewStatisticalExtractor creates the TF-ISF term ranker.
func NewStatisticalExtractor(config model.StatisticalConfig, logger *slog.Logger) *StatisticalExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatisticalExtractor{config: config, logger: logger}
}

// Name returns the method identifier.
func (e *StatisticalExtractor) Name() string {
	return model.MethodStatistical
}

// Extract scores all candidates by TF-ISF plus prominence features, detects
// surface variants and returns the top-K survivors of the threshold filters.
func (e *StatisticalExtractor) Extract(index *model.CandidateIndex) (*model.MethodResult, error) {
	result := model.EmptyMethodResult(e.Name())
	totalSentences := index.SentenceCount()
	if totalSentences == 0 {
		return result, nil
	}

	names := index.AllCandidates()
	lowered := make([]string, len(index.Sentences))
	for i, s := range index.Sentences {
		lowered[i] = strings.ToLower(s)
	}

	candidates := make([]*model.ScoredCandidate, 0, len(names))
	frequencies := make(map[string]int, len(names))

	for _, name := range names {
		pattern := wholeWordPattern(name)
		sf, avgTF := e.sentenceStatistics(pattern, lowered, index.Sentences)
		if sf == 0 {
			continue
		}
		frequencies[name] = sf

		isf := math.Log(float64(totalSentences) / float64(sf))
		tfisf := avgTF * isf

		sfRatio := float64(sf) / float64(totalSentences)
		mentions := 0
		if stats := index.Stats[name]; stats != nil {
			mentions = stats.TotalMentions
		}

		candidates = append(candidates, &model.ScoredCandidate{
			Name:     name,
			Score:    clamp01(tfisf + e.prominenceBonus(sfRatio) + mentionDensity(mentions)),
			Mentions: mentions,
			Metadata: model.Metadata{
				"tfisf_score":        tfisf,
				"sentence_frequency": sf,
				"sf_ratio":           sfRatio,
			},
		})
	}

	e.attachVariants(candidates)
	candidates = e.applyFilters(candidates, frequencies, totalSentences)

	sortByScore(candidates)
	if len(candidates) > e.config.TopK {
		candidates = candidates[:e.config.TopK]
	}

	result.Candidates = candidates
	result.ComputeStatistics()
	e.logger.Debug("statistical ranking finished", "candidates", len(candidates))
	return result, nil
}

// sentenceStatistics returns the sentence frequency of the pattern and the
// average term frequency over the sentences containing it.
func (e *StatisticalExtractor) sentenceStatistics(pattern *regexp.Regexp, lowered []string, sentences []string) (int, float64) {
	sf := 0
	tfSum := 0.0
	for i, sent := range lowered {
		occurrences := len(pattern.FindAllStringIndex(sent, -1))
		if occurrences == 0 {
			continue
		}
		sf++
		tokens := strings.Fields(sentences[i])
		if len(tokens) > 0 {
			tfSum += float64(occurrences) / float64(len(tokens))
		}
	}
	if sf == 0 {
		return 0, 0
	}
	return sf, tfSum / float64(sf)
}

// prominenceBonus rewards the sentence-frequency band main characters live
// in. Background characters sit below it, narrator pronouns far above it.
func (e *StatisticalExtractor) prominenceBonus(sfRatio float64) float64 {
	switch {
	case sfRatio >= 0.10 && sfRatio <= 0.30:
		return e.config.ProminenceBoost
	case sfRatio > 0.30:
		return e.config.ProminenceBoost / 2
	default:
		return 0.0
	}
}

func mentionDensity(mentions int) float64 {
	return min(float64(mentions)/100.0, 0.1)
}

// attachVariants groups near-duplicate surface forms by string similarity
// and records the group on the longest member. Single pass with a processed
// set, first match claims the variant.
func (e *StatisticalExtractor) attachVariants(candidates []*model.ScoredCandidate) {
	processed := make(map[string]bool)

	for i, candidate := range candidates {
		if processed[candidate.Name] {
			continue
		}
		variants := []string{candidate.Name}

		for _, other := range candidates[i+1:] {
			if processed[other.Name] {
				continue
			}
			if StringSimilarity(candidate.Name, other.Name) >= e.config.SimilarityThreshold {
				variants = append(variants, other.Name)
				processed[other.Name] = true
			}
		}
		processed[candidate.Name] = true

		if len(variants) > 1 {
			canonical := longestString(variants)
			for _, c := range candidates {
				if c.Name == canonical {
					c.Metadata["variants"] = variants
					break
				}
			}
		}
	}
}

func (e *StatisticalExtractor) applyFilters(candidates []*model.ScoredCandidate, frequencies map[string]int, totalSentences int) []*model.ScoredCandidate {
	maxSF := int(float64(totalSentences) * e.config.MaxSentenceFreqRate)

	filtered := make([]*model.ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		tfisf, _ := c.Metadata["tfisf_score"].(float64)
		sf := frequencies[c.Name]

		if tfisf < e.config.MinTFISF {
			continue
		}
		if sf < e.config.MinSentenceFreq || sf > maxSF {
			continue
		}
		if c.Mentions < e.config.MinMentions {
			continue
		}
		filtered = append(filtered, c)
	}
	return filtered
}

// StringSimilarity scores how likely two surface strings name the same
// character: exact match 1.0, substring containment scaled by length ratio,
// shared first token 0.7, equal after possessive strip 0.9, otherwise
// Jaccard character overlap.
func StringSimilarity(name1, name2 string) float64 {
	n1 := strings.ToLower(strings.TrimSpace(name1))
	n2 := strings.ToLower(strings.TrimSpace(name2))

	if n1 == n2 {
		return 1.0
	}

	if strings.Contains(n1, n2) || strings.Contains(n2, n1) {
		shorter := float64(min(len(n1), len(n2)))
		longer := float64(max(len(n1), len(n2)))
		return shorter / longer
	}

	parts1 := strings.Fields(n1)
	parts2 := strings.Fields(n2)
	if len(parts1) > 0 && len(parts2) > 0 && parts1[0] == parts2[0] && len(parts1[0]) >= 3 {
		return 0.7
	}

	if possessiveRe.ReplaceAllString(n1, "") == possessiveRe.ReplaceAllString(n2, "") {
		return 0.9
	}

	return jaccardChars(n1, n2)
}

func jaccardChars(a, b string) float64 {
	setA := make(map[rune]bool)
	setB := make(map[rune]bool)
	for _, r := range a {
		setA[r] = true
	}
	for _, r := range b {
		setB[r] = true
	}

	intersection := 0
	for r := range setA {
		if setB[r] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

func wholeWordPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(strings.ToLower(name)) + `\b`)
}

func longestString(values []string) string {
	longest := ""
	for _, v := range values {
		if len(v) > len(longest) {
			longest = v
		}
	}
	return longest
}
