package extract

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/siherrmann/storygraph/helper"
	"github.com/siherrmann/storygraph/model"
)

// roleNouns are the descriptive roles an unnamed character can be
// identified by ("the old man", "the merchant").
var roleNouns = []string{
	"man", "woman", "boy", "girl", "officer", "officers", "doctor",
	"captain", "soldier", "stranger", "merchant", "servant", "priest",
	"king", "queen", "teacher",
}

var rolePatterns = buildRolePatterns()

func buildRolePatterns() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(roleNouns))
	for _, noun := range roleNouns {
		patterns[noun] = regexp.MustCompile(`(?i)\bthe\s+((?:old|young)\s+)?` + noun + `\b`)
	}
	return patterns
}

var pronounCategories = map[string][]string{
	"male":   {"he", "him", "his", "himself"},
	"female": {"she", "her", "hers", "herself"},
	"plural": {"they", "them", "their", "theirs", "themselves"},
}

// NarratorName is the display name of a detected first-person narrator.
const NarratorName = "Narrator (First Person)"

// EmbeddingsExtractor embeds each candidate's mention contexts, clusters
// the averaged vectors to merge co-referential variants, and separately
// detects narrator and role-based characters via lexical pattern counts.
type EmbeddingsExtractor struct {
	config    model.EmbeddingsConfig
	embedder  EmbedFunc
	clusterer Clusterer
	logger    *slog.Logger
}

// NewEmbeddingsExtractor creates the semantic clustering method. A nil
// embedder selects the frequency-only fallback; a nil clusterer selects the
// density clusterer with the configured epsilon and minimum cluster size.
func NewEmbeddingsExtractor(config model.EmbeddingsConfig, embedder EmbedFunc, clusterer Clusterer, logger *slog.Logger) *EmbeddingsExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	if clusterer == nil {
		clusterer = NewDensityClusterer(config.ClusterEpsilon, config.MinClusterSize)
	}
	return &EmbeddingsExtractor{
		config:    config,
		embedder:  embedder,
		clusterer: clusterer,
		logger:    logger,
	}
}

// Name returns the method identifier.
func (e *EmbeddingsExtractor) Name() string {
	return model.MethodEmbeddings
}

// DefaultEmbedder creates an embedder backed by a sentence transformer
// model through hugot. The default all-MiniLM-L6-v2 model produces
// 384-dimensional embeddings.
func DefaultEmbedder(modelName string) (EmbedFunc, error) {
	modelPath, err := helper.PrepareModel(modelName, "")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "context-embedder",
	}
	contextPipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create embedding pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create embedding pipeline: %w", err)
	}

	return func(text string) ([]float32, error) {
		result, err := contextPipeline.RunPipeline([]string{text})
		if err != nil {
			return nil, fmt.Errorf("failed to generate embedding: %w", err)
		}
		if len(result.Embeddings) == 0 {
			return nil, fmt.Errorf("no embedding generated")
		}
		return result.Embeddings[0], nil
	}, nil
}

// Extract embeds and clusters the candidates, then appends the narrator and
// role-based special cases. It never returns an error; without a usable
// embedder it degrades to a frequency-only heuristic.
func (e *EmbeddingsExtractor) Extract(index *model.CandidateIndex) (*model.MethodResult, error) {
	result := model.EmptyMethodResult(e.Name())

	var candidates []*model.ScoredCandidate
	if e.embedder != nil {
		candidates = e.clusterCandidates(index)
	}
	if candidates == nil {
		candidates = e.frequencyFallback(index)
	}

	if e.config.DetectNarrator {
		if narrator := e.detectNarrator(index); narrator != nil {
			candidates = append(candidates, narrator)
		}
	}
	if e.config.DetectRoles {
		candidates = append(candidates, e.detectRoles(index)...)
	}

	sortByScore(candidates)
	result.Candidates = candidates
	result.ComputeStatistics()
	return result, nil
}

// clusterCandidates embeds every candidate's mention contexts, averages
// them per candidate and clusters the averages. Returns nil when the
// embedder fails, signalling the caller to fall back.
func (e *EmbeddingsExtractor) clusterCandidates(index *model.CandidateIndex) []*model.ScoredCandidate {
	names := e.eligibleCandidates(index)
	if len(names) == 0 {
		return []*model.ScoredCandidate{}
	}

	sentenceVectors := make(map[int][]float32)
	vectors := make([][]float32, 0, len(names))

	for _, name := range names {
		stats := index.Stats[name]
		var sum []float32
		count := 0
		for _, sentID := range stats.SentenceIDs {
			vector, ok := sentenceVectors[sentID]
			if !ok {
				var err error
				vector, err = e.embedder(index.Sentences[sentID])
				if err != nil {
					e.logger.Warn("embedding backend failed, falling back to frequency heuristic", "error", err)
					return nil
				}
				sentenceVectors[sentID] = vector
			}
			sum = addVectors(sum, vector)
			count++
		}
		vectors = append(vectors, scaleVector(sum, 1.0/float64(count)))
	}

	labels := e.clusterer.Cluster(vectors)
	return e.buildClusterCandidates(names, vectors, labels, index)
}

// buildClusterCandidates turns cluster labels into scored candidates: one
// per cluster with the longest member as canonical name, one per noise
// point at the lower singleton base confidence.
func (e *EmbeddingsExtractor) buildClusterCandidates(names []string, vectors [][]float32, labels []int, index *model.CandidateIndex) []*model.ScoredCandidate {
	groups := make(map[int][]int)
	var order []int
	for i, label := range labels {
		if label == NoiseLabel {
			continue
		}
		if _, ok := groups[label]; !ok {
			order = append(order, label)
		}
		groups[label] = append(groups[label], i)
	}

	var candidates []*model.ScoredCandidate

	for _, label := range order {
		members := groups[label]
		candidates = append(candidates, e.scoreGroup(members, names, vectors, index, e.config.ClusteredBase, label))
	}
	for i, label := range labels {
		if label == NoiseLabel {
			candidates = append(candidates, e.scoreGroup([]int{i}, names, vectors, index, e.config.SingletonBase, NoiseLabel))
		}
	}

	return candidates
}

func (e *EmbeddingsExtractor) scoreGroup(members []int, names []string, vectors [][]float32, index *model.CandidateIndex, base float64, label int) *model.ScoredCandidate {
	variants := make([]string, 0, len(members))
	mentions := 0
	var centroid []float32
	sentenceIDs := make(map[int]bool)

	for _, m := range members {
		name := names[m]
		variants = append(variants, name)
		stats := index.Stats[name]
		mentions += stats.TotalMentions
		for _, id := range stats.SentenceIDs {
			sentenceIDs[id] = true
		}
		centroid = addVectors(centroid, vectors[m])
	}
	centroid = scaleVector(centroid, 1.0/float64(len(members)))

	// Longest variant wins, first encountered on ties. The member order is
	// derived from the sorted candidate lists, so ties break
	// deterministically.
	canonical := variants[0]
	for _, v := range variants[1:] {
		if len(v) > len(canonical) {
			canonical = v
		}
	}

	score := base + frequencyBonus(mentions) + e.pronounBonus(sentenceIDs, index) + roleBonus(canonical)

	return &model.ScoredCandidate{
		Name:     canonical,
		Score:    min(score, 1.0),
		Mentions: mentions,
		Metadata: model.Metadata{
			"cluster_id": label,
			"variants":   variants,
			"centroid":   centroid,
		},
	}
}

// frequencyFallback scores candidates by mention count alone so the
// ensemble can still run with the other two methods.
func (e *EmbeddingsExtractor) frequencyFallback(index *model.CandidateIndex) []*model.ScoredCandidate {
	names := e.eligibleCandidates(index)
	candidates := make([]*model.ScoredCandidate, 0, len(names))

	for _, name := range names {
		stats := index.Stats[name]
		score := e.config.SingletonBase + frequencyBonus(stats.TotalMentions) + roleBonus(name)
		candidates = append(candidates, &model.ScoredCandidate{
			Name:     name,
			Score:    min(score, 1.0),
			Mentions: stats.TotalMentions,
			Metadata: model.Metadata{"fallback": "frequency"},
		})
	}
	return candidates
}

// minMentionsToEmbed keeps one-off tokens out of the embedding pass.
const minMentionsToEmbed = 2

// eligibleCandidates returns the deterministically ordered candidates with
// enough mentions to be worth embedding.
func (e *EmbeddingsExtractor) eligibleCandidates(index *model.CandidateIndex) []string {
	var names []string
	for _, name := range index.AllCandidates() {
		stats := index.Stats[name]
		if stats != nil && stats.TotalMentions >= minMentionsToEmbed {
			names = append(names, name)
		}
	}
	return names
}

// detectNarrator declares a first-person narrator when the standalone
// pronoun "I" is frequent enough. The confidence is a fixed provisional
// value, frequency normalization is meaningless for a pronoun.
func (e *EmbeddingsExtractor) detectNarrator(index *model.CandidateIndex) *model.ScoredCandidate {
	count := 0
	for _, tokens := range index.Tokens {
		for _, token := range tokens {
			if token == "I" {
				count++
			}
		}
	}
	if count < e.config.NarratorMinMentions {
		return nil
	}

	e.logger.Debug("first-person narrator detected", "pronoun_count", count)
	return &model.ScoredCandidate{
		Name:     NarratorName,
		Score:    e.config.NarratorConfidence,
		Mentions: count,
		Metadata: model.Metadata{"special": "narrator"},
	}
}

// detectRoles declares role-based characters for every fixed role pattern
// matching often enough in the document.
func (e *EmbeddingsExtractor) detectRoles(index *model.CandidateIndex) []*model.ScoredCandidate {
	text := strings.Join(index.Sentences, " ")

	nouns := make([]string, 0, len(rolePatterns))
	for noun := range rolePatterns {
		nouns = append(nouns, noun)
	}
	sort.Strings(nouns)

	var candidates []*model.ScoredCandidate
	for _, noun := range nouns {
		matches := rolePatterns[noun].FindAllString(text, -1)
		if len(matches) < e.config.RoleMinMatches {
			continue
		}

		// The most frequent surface form names the role.
		counts := make(map[string]int)
		for _, m := range matches {
			counts[strings.ToLower(m)]++
		}
		surface := ""
		for form, count := range counts {
			if surface == "" || count > counts[surface] || (count == counts[surface] && form < surface) {
				surface = form
			}
		}

		candidates = append(candidates, &model.ScoredCandidate{
			Name:     titleizeWords(surface),
			Score:    e.config.RoleConfidence,
			Mentions: len(matches),
			Metadata: model.Metadata{"special": "role", "role": noun},
		})
	}
	return candidates
}

// pronounBonus scans the mention sentences for gendered and plural
// pronouns; a candidate consistently referenced by one pronoun category is
// more likely a character.
func (e *EmbeddingsExtractor) pronounBonus(sentenceIDs map[int]bool, index *model.CandidateIndex) float64 {
	counts := map[string]int{}
	total := 0

	for id := range sentenceIDs {
		for _, token := range index.Tokens[id] {
			lower := strings.ToLower(token)
			for category, pronouns := range pronounCategories {
				for _, p := range pronouns {
					if lower == p {
						counts[category]++
						total++
					}
				}
			}
		}
	}
	if total == 0 {
		return 0.0
	}

	dominant := 0
	for _, c := range counts {
		if c > dominant {
			dominant = c
		}
	}
	return 0.1 * float64(dominant) / float64(total)
}

func frequencyBonus(mentions int) float64 {
	return min(float64(mentions)/50.0, 0.15)
}

func roleBonus(name string) float64 {
	if strings.HasPrefix(name, "The ") {
		return 0.05
	}
	return 0.0
}

func titleizeWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(w)
		runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

func addVectors(sum, v []float32) []float32 {
	if sum == nil {
		sum = make([]float32, len(v))
	}
	for i := range v {
		sum[i] += v[i]
	}
	return sum
}

func scaleVector(v []float32, factor float64) []float32 {
	out := make([]float32, len(v))
	for i := range v {
		out[i] = float32(float64(v[i]) * factor)
	}
	return out
}
