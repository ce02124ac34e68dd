// Package traits derives personality trait profiles for detected
// characters from their mention contexts, using a static trait lexicon and
// sentence patterns.
package traits

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/siherrmann/storygraph/model"
)

var traitKeywords = map[model.TraitCategory][]string{
	model.TraitPositive: {
		"kind", "brave", "honest", "loyal", "generous", "wise",
		"gentle", "patient", "loving", "caring", "compassionate",
		"noble", "heroic", "virtuous", "faithful", "trustworthy",
	},
	model.TraitNegative: {
		"cruel", "evil", "dishonest", "selfish", "greedy", "foolish",
		"harsh", "impatient", "hateful", "wicked", "mean", "brutal",
		"villainous", "treacherous", "malicious", "suspicious",
	},
	model.TraitEmotional: {
		"sad", "happy", "angry", "fearful", "anxious", "nervous",
		"excited", "depressed", "joyful", "melancholy", "passionate",
	},
	model.TraitBehavioral: {
		"aggressive", "passive", "cautious", "reckless", "calm",
		"violent", "peaceful", "active", "lazy", "diligent",
	},
}

// keywordCategory is the reverse lookup of traitKeywords.
var keywordCategory = buildKeywordCategory()

func buildKeywordCategory() map[string]model.TraitCategory {
	lookup := make(map[string]model.TraitCategory)
	for category, keywords := range traitKeywords {
		for _, kw := range keywords {
			lookup[kw] = category
		}
	}
	return lookup
}

// contextWindow is how many tokens around a name mention are scanned for
// trait words.
const contextWindow = 3

// Extractor builds trait profiles from entity contexts.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates a trait extractor.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// ExtractAll builds one profile per entity from its contexts. Entities
// without any trait evidence get no profile.
func (e *Extractor) ExtractAll(entities []*model.Entity) map[string]*model.TraitProfile {
	profiles := make(map[string]*model.TraitProfile)
	for _, entity := range entities {
		profile := e.ExtractProfile(entity.Name, entity.Contexts)
		if len(profile.RawTraits) > 0 {
			profiles[entity.Name] = profile
		}
	}
	e.logger.Info("extracted trait profiles", "characters", len(profiles))
	return profiles
}

// ExtractProfile scans the character's contexts for trait words near the
// name and for "NAME is/was/seemed TRAIT" patterns.
func (e *Extractor) ExtractProfile(character string, contexts []model.SentenceContext) *model.TraitProfile {
	profile := &model.TraitProfile{
		Character:      character,
		TraitFrequency: make(map[string]int),
		Classified:     make(map[model.TraitCategory][]string),
	}

	copulaPattern := copulaTraitPattern(character)
	precedingPattern := precedingTraitPattern(character)

	for _, context := range contexts {
		found := windowTraits(context.Sentence, character)
		found = append(found, patternTraits(copulaPattern, context.Sentence)...)
		found = append(found, patternTraits(precedingPattern, context.Sentence)...)
		if len(found) == 0 {
			continue
		}

		profile.RawTraits = append(profile.RawTraits, found...)
		profile.Evidence = append(profile.Evidence, model.TraitEvidence{
			SentenceID: context.SentenceID,
			Sentence:   context.Sentence,
			Traits:     found,
		})
	}

	for _, trait := range profile.RawTraits {
		profile.TraitFrequency[trait]++
	}
	classify(profile)
	return profile
}

// windowTraits returns the lexicon words within the context window of any
// name token.
func windowTraits(sentence, character string) []string {
	charTokens := make(map[string]bool)
	for _, t := range strings.Fields(strings.ToLower(character)) {
		charTokens[t] = true
	}

	tokens := strings.Fields(strings.ToLower(sentence))
	for i, t := range tokens {
		tokens[i] = strings.Trim(t, `.,!?;:'"`)
	}

	var found []string
	for i, token := range tokens {
		if !charTokens[token] {
			continue
		}
		start := max(0, i-contextWindow)
		end := min(len(tokens), i+contextWindow+1)
		for j := start; j < end; j++ {
			if _, ok := keywordCategory[tokens[j]]; ok {
				found = append(found, tokens[j])
			}
		}
	}
	return found
}

// copulaTraitPattern matches "NAME is/was/seemed WORD".
func copulaTraitPattern(character string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`(?i)\b%s\s+(?:is|was|seems|seemed|appeared|looked)\s+(\w+)`, regexp.QuoteMeta(character)))
}

// precedingTraitPattern matches "WORD NAME".
func precedingTraitPattern(character string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`(?i)\b(\w+)\s+%s\b`, regexp.QuoteMeta(character)))
}

// patternTraits keeps only captured words the lexicon knows, the lexicon
// doubles as the adjective check.
func patternTraits(pattern *regexp.Regexp, sentence string) []string {
	var found []string
	for _, match := range pattern.FindAllStringSubmatch(sentence, -1) {
		word := strings.ToLower(match[1])
		if _, ok := keywordCategory[word]; ok {
			found = append(found, word)
		}
	}
	return found
}

func classify(profile *model.TraitProfile) {
	counts := make(map[model.TraitCategory]int)

	seen := make(map[string]bool)
	for _, trait := range profile.RawTraits {
		category := keywordCategory[trait]
		counts[category]++
		if !seen[trait] {
			profile.Classified[category] = append(profile.Classified[category], trait)
			seen[trait] = true
		}
	}

	best := 0
	for _, category := range []model.TraitCategory{model.TraitPositive, model.TraitNegative, model.TraitEmotional, model.TraitBehavioral} {
		if counts[category] > best {
			best = counts[category]
			profile.DominantTone = category
		}
	}
}
