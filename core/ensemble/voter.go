package ensemble

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/storygraph/model"
	"gonum.org/v1/gonum/stat"
)

// qcBlacklist holds words that disqualify a final entity name. Matched on
// whole words only; this list is intentionally smaller than the method
// level blacklist because alignment may have merged a good name with a bad
// variant.
var qcBlacklist = []string{
	"christmas", "god", "lord", "jesus", "magi",
	"monday", "tuesday", "wednesday", "thursday", "friday",
	"saturday", "sunday", "dear", "young",
}

// VoteResult is the complete voter output for one document.
type VoteResult struct {
	Entities   []*model.Entity
	Statistics model.EnsembleStatistics
	Alignment  map[string]*model.AlignmentEntry
}

// Voter reconciles method results into the final entity list.
type Voter struct {
	config model.EnsembleConfig
	logger *slog.Logger
}

// NewVoter creates an ensemble voter.
func NewVoter(config model.EnsembleConfig, logger *slog.Logger) *Voter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Voter{config: config, logger: logger}
}

// Vote runs the fixed stage order over the method results. A method that
// errored upstream contributes an empty MethodResult; the vote proceeds
// with whatever remains.
func (v *Voter) Vote(methodResults map[string]*model.MethodResult) *VoteResult {
	alignment := Align(methodResults)
	v.logger.Info("aligned entities across methods", "groups", len(alignment))

	entities := v.scoreEntities(alignment, methodResults)
	entities = v.resolveConflicts(entities)
	v.logger.Info("resolved single-method conflicts", "entities", len(entities))

	entities = v.mergeVariants(entities)
	entities = v.qualityControl(entities)
	v.logger.Info("quality control finished", "entities", len(entities))

	sortEntities(entities)

	return &VoteResult{
		Entities:   entities,
		Statistics: v.buildStatistics(entities, methodResults),
		Alignment:  alignment,
	}
}

// scoreEntities computes the weighted confidence per aligned entity,
// summing only over methods that detected it. Absent methods contribute
// neither numerator nor denominator; scoring zero for non-detection would
// punish entities the other methods correctly abstained on.
func (v *Voter) scoreEntities(alignment map[string]*model.AlignmentEntry, methodResults map[string]*model.MethodResult) []*model.Entity {
	canonicals := make([]string, 0, len(alignment))
	for name := range alignment {
		canonicals = append(canonicals, name)
	}
	sort.Strings(canonicals)

	entities := make([]*model.Entity, 0, len(canonicals))
	for _, canonical := range canonicals {
		entry := alignment[canonical]

		methodScores := make(map[string]float64)
		mentions := 0
		var embedding []float32

		for _, method := range entry.DetectedBy {
			candidate := firstMatch(methodResults[method], entry.Matches[method])
			if candidate == nil {
				continue
			}
			methodScores[method] = candidate.Score
			mentions += candidate.Mentions
			if method == model.MethodEmbeddings {
				if centroid, ok := candidate.Metadata["centroid"].([]float32); ok {
					embedding = centroid
				}
			}
		}

		weightedSum := 0.0
		weightSum := 0.0
		for method, score := range methodScores {
			weight := v.config.MethodWeights[method]
			weightedSum += score * weight
			weightSum += weight
		}
		confidence := 0.0
		if weightSum > 0 {
			confidence = weightedSum / weightSum
		}

		entities = append(entities, &model.Entity{
			ID:             uuid.New(),
			Name:           canonical,
			Confidence:     confidence,
			Mentions:       mentions,
			DetectedBy:     entry.DetectedBy,
			DetectionCount: len(entry.DetectedBy),
			Variants:       entry.AllVariants,
			MethodScores:   methodScores,
			Embedding:      embedding,
			CreatedAt:      time.Now(),
		})
	}
	return entities
}

// firstMatch returns the first candidate of the method whose name is in the
// matched set, following the method's own ranking order.
func firstMatch(result *model.MethodResult, matched []string) *model.ScoredCandidate {
	matchedSet := make(map[string]bool, len(matched))
	for _, name := range matched {
		matchedSet[name] = true
	}
	for _, c := range result.Candidates {
		if matchedSet[c.Name] {
			return c
		}
	}
	return nil
}

// resolveConflicts accepts majority detections outright and holds
// single-method detections to stricter, method-dependent bars. Embeddings
// get the most trust alone because they capture contextual semantics the
// statistical signals cannot. Input entities are never modified; discounts
// apply to copies.
func (v *Voter) resolveConflicts(entities []*model.Entity) []*model.Entity {
	resolved := make([]*model.Entity, 0, len(entities))

	for _, entity := range entities {
		if entity.DetectionCount >= 2 {
			resolved = append(resolved, entity)
			continue
		}

		method := entity.DetectedBy[0]
		switch {
		case method == model.MethodEmbeddings && isSpecialCaseName(entity.Name):
			discounted := cloneEntity(entity)
			discounted.Confidence *= v.config.SpecialCaseDiscount
			resolved = append(resolved, discounted)
		case method == model.MethodEmbeddings && entity.Confidence >= v.config.EmbeddingsOnlyBar:
			discounted := cloneEntity(entity)
			discounted.Confidence *= v.config.EmbeddingsOnlyDiscount
			resolved = append(resolved, discounted)
		case method != model.MethodEmbeddings && entity.Confidence >= v.config.StatisticalOnlyBar:
			discounted := cloneEntity(entity)
			discounted.Confidence *= v.config.StatisticalOnlyDiscount
			resolved = append(resolved, discounted)
		default:
			v.logger.Debug("dropped single-method detection", "name", entity.Name, "method", method, "confidence", entity.Confidence)
		}
	}
	return resolved
}

// cloneEntity copies an entity so a stage can adjust its own output without
// touching the previous stage's collection.
func cloneEntity(entity *model.Entity) *model.Entity {
	clone := *entity
	clone.MethodScores = make(map[string]float64, len(entity.MethodScores))
	for method, score := range entity.MethodScores {
		clone.MethodScores[method] = score
	}
	return &clone
}

// isSpecialCaseName reports whether the name is a narrator or role-based
// special case validated by pattern thresholds upstream.
func isSpecialCaseName(name string) bool {
	return strings.Contains(name, "Narrator") || strings.Contains(name, "The ")
}

// mergeVariants is a second merge pass over the surviving entities.
// Conflict resolution can reveal near-duplicates that alignment missed when
// disjoint method subsets chose different canonical names for the same
// character. The merged confidence is a mention-weighted average, mention
// counts add up exactly. Accumulation happens on copies, the input entities
// stay as conflict resolution produced them.
func (v *Voter) mergeVariants(entities []*model.Entity) []*model.Entity {
	merged := make([]*model.Entity, 0, len(entities))
	processed := make(map[int]bool)

	for i, entity := range entities {
		if processed[i] {
			continue
		}
		processed[i] = true
		acc := cloneEntity(entity)

		for j := i + 1; j < len(entities); j++ {
			if processed[j] {
				continue
			}
			other := entities[j]
			if !AreSameEntity(acc.Name, other.Name) {
				continue
			}

			total := acc.Mentions + other.Mentions
			if total > 0 {
				acc.Confidence = acc.Confidence*float64(acc.Mentions)/float64(total) +
					other.Confidence*float64(other.Mentions)/float64(total)
			}
			acc.Mentions = total
			acc.Variants = unionStrings(acc.Variants, other.Variants)
			acc.DetectedBy = unionStrings(acc.DetectedBy, other.DetectedBy)
			acc.DetectionCount = len(acc.DetectedBy)
			for method, score := range other.MethodScores {
				if _, ok := acc.MethodScores[method]; !ok {
					acc.MethodScores[method] = score
				}
			}
			if acc.Embedding == nil {
				acc.Embedding = other.Embedding
			}
			processed[j] = true
		}

		merged = append(merged, acc)
	}
	return merged
}

// qualityControl applies the adaptive confidence floor by name shape, the
// minimum mention count and the final blacklist check.
func (v *Voter) qualityControl(entities []*model.Entity) []*model.Entity {
	filtered := make([]*model.Entity, 0, len(entities))

	for _, entity := range entities {
		required := v.config.MultiWordConfidence
		if len(strings.Fields(entity.Name)) == 1 {
			// Single words are more likely common nouns.
			required = v.config.SingleWordConfidence
		} else if isSpecialCaseName(entity.Name) {
			// Already validated by pattern thresholds upstream.
			required = v.config.RoleBasedConfidence
		}

		if entity.Confidence < required {
			continue
		}
		if entity.Mentions < v.config.MinMentions {
			continue
		}
		if isQCBlacklisted(entity.Name) {
			continue
		}
		filtered = append(filtered, entity)
	}
	return filtered
}

func isQCBlacklisted(name string) bool {
	nameLower := strings.ToLower(name)
	words := strings.Fields(nameLower)
	for _, entry := range qcBlacklist {
		if entry == nameLower {
			return true
		}
		for _, word := range words {
			if word == entry {
				return true
			}
		}
	}
	return false
}

func (v *Voter) buildStatistics(entities []*model.Entity, methodResults map[string]*model.MethodResult) model.EnsembleStatistics {
	stats := model.EnsembleStatistics{
		TotalEntities:    len(entities),
		DetectionCounts:  make(map[int]int),
		MethodCandidates: make(map[string]int),
		Contributions:    make(map[string]model.MethodContribution),
	}

	confidences := make([]float64, 0, len(entities))
	for _, entity := range entities {
		confidences = append(confidences, entity.Confidence)
		stats.DetectionCounts[entity.DetectionCount]++

		switch {
		case entity.Confidence >= 0.9:
			stats.Distribution.VeryHigh++
		case entity.Confidence >= 0.8:
			stats.Distribution.High++
		case entity.Confidence >= 0.6:
			stats.Distribution.Medium++
		default:
			stats.Distribution.Low++
		}

		for _, method := range entity.DetectedBy {
			contribution := stats.Contributions[method]
			contribution.Total++
			if entity.DetectionCount == 1 {
				contribution.Unique++
			} else {
				contribution.Shared++
			}
			stats.Contributions[method] = contribution
		}
	}
	if len(confidences) > 0 {
		stats.AverageConfidence = stat.Mean(confidences, nil)
	}

	for method, result := range methodResults {
		stats.MethodCandidates[method] = len(result.Candidates)
	}
	return stats
}

// sortEntities orders the final list by confidence descending, name
// ascending on ties.
func sortEntities(entities []*model.Entity) {
	sort.SliceStable(entities, func(i, j int) bool {
		if entities[i].Confidence != entities[j].Confidence {
			return entities[i].Confidence > entities[j].Confidence
		}
		return entities[i].Name < entities[j].Name
	})
}

func unionStrings(a, b []string) []string {
	set := make(map[string]bool, len(a)+len(b))
	for _, s := range a {
		set[s] = true
	}
	for _, s := range b {
		set[s] = true
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
