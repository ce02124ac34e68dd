// Package relations detects inter-character relationships from sentence
// proximity and relationship vocabulary, and assembles them into a
// character graph.
package relations

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/storygraph/model"
)

// relationPatterns maps each relation type to the phrases that signal it.
// Patterns are matched against lowercased sentences.
var relationPatterns = map[model.RelationType][]string{
	model.RelationParentChild: {
		`\b(?:mother|father|parent|mom|dad|mama|papa)\s+(?:of|to)\b`,
		`\b(?:son|daughter|child|children)\s+(?:of|to)\b`,
		`\b(?:my|her|his)\s+(?:mother|father|parent|son|daughter|child)\b`,
		`\bgave birth to\b`, `\braised\b`, `\bborn to\b`,
	},
	model.RelationSiblings: {
		`\b(?:my|her|his)\s+(?:brother|sister|sibling)\b`,
		`\btwin\b`, `\bolder brother\b`, `\byounger sister\b`,
	},
	model.RelationSpouse: {
		`\b(?:husband|wife|spouse)\b`,
		`\bmarried\b`, `\bwedding\b`, `\bmarriage\b`, `\bbride|groom\b`,
		`\b(?:his|my) wife\b`, `\b(?:her|my) husband\b`,
		`\btheir home\b`, `\bmarried couple\b`,
	},
	model.RelationExtendedFamily: {
		`\b(?:uncle|aunt|cousin|nephew|niece)\b`,
		`\b(?:grandfather|grandmother|grandparent)\b`,
		`\b(?:grandson|granddaughter|grandchild)\b`,
	},
	model.RelationLovers: {
		`\blover\b`, `\bboyfriend|girlfriend\b`, `\bsweetheart\b`,
		`\bdating\b`, `\bin love with\b`,
		`\bdarling\b`, `\bhoney\b`, `\bbeloved\b`,
		`\bmy love\b`, `\bi love\b`, `\bshe loves\b`, `\bhe loves\b`,
	},
	model.RelationRomanticInterest: {
		`\bcrush\b`, `\badmire[sd]?\b`,
		`\baffection for\b`, `\bfond of\b`,
		`\btreasure\b`, `\bprecious\b`,
		`\badore[sd]?\b`, `\bcherish\b`,
	},
	model.RelationCloseFriends: {
		`\bbest friend\b`, `\bclose friend\b`,
		`\binseparable\b`, `\bconfidant\b`,
	},
	model.RelationCompanions: {
		`\bcompanion\b`, `\bcomrade\b`, `\bally\b`, `\bpartner\b`,
		`\bacquaintance\b`, `\bknow each other\b`,
	},
	model.RelationEmployerEmployee: {
		`\bboss\b`, `\bemployer\b`, `\bemployee\b`,
		`\bworks for\b`, `\bhired\b`,
	},
	model.RelationColleagues: {
		`\bcolleague\b`, `\bcoworker\b`,
		`\bwork together\b`, `\bteammate\b`,
		`\bbusiness partner\b`, `\bpartnership\b`,
	},
	model.RelationCustomerMerchant: {
		`\b(?:customer|client)\b`, `\b(?:merchant|seller|vendor)\b`,
		`\bbought from\b`, `\bsold to\b`,
		`\bpurchased from\b`, `\bsold (?:it|them) to\b`,
	},
	model.RelationEnemies: {
		`\benemy\b`, `\bhate[sd]?\b`, `\bfoe\b`, `\badversary\b`,
		`\bvictim\b`, `\battacker\b`, `\bkilled\b`, `\bmurdered\b`,
	},
	model.RelationRivals: {
		`\brival\b`, `\bcompete\b`, `\bcompetition\b`, `\bcontest\b`,
		`\bagainst\b`, `\boppose[sd]?\b`, `\bconfronted\b`,
	},
	model.RelationNeighbors: {
		`\bneighbor\b`, `\bnext door\b`, `\blive nearby\b`,
	},
	model.RelationTeacherStudent: {
		`\bteacher\b`, `\bstudent\b`, `\bpupil\b`,
		`\bmentor\b`, `\btaught\b`, `\blearned from\b`,
	},
	model.RelationMasterServant: {
		`\bmaster\b`, `\bservant\b`, `\bserve[sd]?\b`, `\bslave\b`,
	},
}

// relationPriority ranks relation types when one pair matches several.
// Personal relationships outrank transactional ones.
var relationPriority = map[model.RelationType]int{
	model.RelationSpouse:           10,
	model.RelationLovers:           9,
	model.RelationParentChild:      9,
	model.RelationRomanticInterest: 8,
	model.RelationSiblings:         8,
	model.RelationCloseFriends:     7,
	model.RelationExtendedFamily:   6,
	model.RelationEnemies:          6,
	model.RelationCompanions:       5,
	model.RelationRivals:           5,
	model.RelationColleagues:       3,
	model.RelationNeighbors:        3,
	model.RelationCustomerMerchant: 1,
}

const defaultPriority = 2

// possessivePatterns infer a relation from possessive phrases in sentences
// where a character appears.
var possessivePatterns = map[model.RelationType][]string{
	model.RelationSpouse: {
		`\bhis\s+wife\b`,
		`\bher\s+husband\b`,
	},
	model.RelationRomanticInterest: {
		`\bhis\s+(?:love|darling|treasure|precious)\b`,
		`\bher\s+(?:love|darling|treasure|precious)\b`,
	},
}

// nonStoryCharacters are figures of speech and religious references that
// should never take part in the relationship graph.
var nonStoryCharacters = map[string]bool{
	"sheba":          true,
	"solomon":        true,
	"magi":           true,
	"wise men":       true,
	"king solomon":   true,
	"queen of sheba": true,
	"god":            true,
	"jesus":          true,
	"moses":          true,
}

var standaloneIRe = regexp.MustCompile(`\bi\b`)

type compiledPattern struct {
	relationType model.RelationType
	raw          string
	re           *regexp.Regexp
}

// Extractor detects relations between already extracted characters.
type Extractor struct {
	window      int
	logger      *slog.Logger
	patterns    []compiledPattern
	possessives []compiledPattern
}

// NewExtractor creates a relation extractor with the given proximity
// window in sentences.
func NewExtractor(window int, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		window:      window,
		logger:      logger,
		patterns:    compilePatterns(relationPatterns),
		possessives: compilePatterns(possessivePatterns),
	}
}

func compilePatterns(source map[model.RelationType][]string) []compiledPattern {
	types := make([]model.RelationType, 0, len(source))
	for t := range source {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	var compiled []compiledPattern
	for _, t := range types {
		for _, raw := range source[t] {
			compiled = append(compiled, compiledPattern{
				relationType: t,
				raw:          raw,
				re:           regexp.MustCompile(raw),
			})
		}
	}
	return compiled
}

// pair is an unordered character pair, stored with Character1 < Character2.
type pair struct {
	Character1 string
	Character2 string
}

func makePair(a, b string) pair {
	if a > b {
		a, b = b, a
	}
	return pair{Character1: a, Character2: b}
}

type candidateRelation struct {
	pair          pair
	relationType  model.RelationType
	confidence    float64
	evidenceCount int
	evidence      []model.RelationEvidence
	source        string
}

// Extract detects relations among the given entities over the document's
// sentences and returns them ranked by strength, together with the
// character graph they form.
func (e *Extractor) Extract(entities []*model.Entity, sentences []string) ([]*model.Relation, *model.CharacterGraph) {
	characters := storyCharacters(entities)
	if len(characters) < 2 {
		e.logger.Info("not enough characters for relation extraction", "characters", len(characters))
		return nil, &model.CharacterGraph{Adjacency: map[string][]*model.Relation{}}
	}

	lowered := make([]string, len(sentences))
	for i, s := range sentences {
		lowered[i] = strings.ToLower(s)
	}

	mentions := indexMentions(characters, lowered)
	cooccurrence := detectCooccurrence(characters, lowered)
	proximity := e.detectProximityPairs(mentions)

	var candidates []candidateRelation
	candidates = append(candidates, e.detectProximityRelations(proximity, sentences, lowered)...)
	candidates = append(candidates, e.detectPossessiveRelations(characters, mentions, sentences, lowered)...)

	relations := mergeAndRank(candidates, cooccurrence, proximity)
	e.logger.Info("extracted relations",
		"characters", len(characters),
		"cooccurrence_pairs", len(cooccurrence),
		"proximity_pairs", len(proximity),
		"relations", len(relations),
	)
	return relations, BuildGraph(relations)
}

// storyCharacters drops non-story figures and returns the remaining
// character names sorted.
func storyCharacters(entities []*model.Entity) []string {
	var names []string
	for _, entity := range entities {
		if nonStoryCharacters[strings.ToLower(entity.Name)] {
			continue
		}
		names = append(names, entity.Name)
	}
	sort.Strings(names)
	return names
}

// indexMentions maps each character to the sentence indices mentioning it.
func indexMentions(characters []string, lowered []string) map[string][]int {
	mentions := make(map[string][]int)
	for sentID, sentence := range lowered {
		for _, character := range characters {
			if characterInSentence(character, sentence) {
				mentions[character] = append(mentions[character], sentID)
			}
		}
	}
	return mentions
}

// characterInSentence checks whether a character is referenced in a
// lowercased sentence, falling back to the first name for multi-word
// names and to standalone "i" for the narrator.
func characterInSentence(character, sentenceLower string) bool {
	charLower := strings.ToLower(character)

	if strings.Contains(charLower, "narrator") {
		return standaloneIRe.MatchString(sentenceLower)
	}
	if role, ok := strings.CutPrefix(charLower, "the "); ok {
		return strings.Contains(sentenceLower, role)
	}
	if strings.Contains(sentenceLower, charLower) {
		return true
	}
	if first, _, ok := strings.Cut(charLower, " "); ok && len(first) >= 3 {
		return strings.Contains(sentenceLower, first)
	}
	return false
}

type cooccurrenceData struct {
	count       int
	sentenceIDs []int
}

// detectCooccurrence finds character pairs sharing a sentence.
func detectCooccurrence(characters []string, lowered []string) map[pair]*cooccurrenceData {
	cooccurrence := make(map[pair]*cooccurrenceData)
	for sentID, sentence := range lowered {
		var present []string
		for _, character := range characters {
			if characterInSentence(character, sentence) {
				present = append(present, character)
			}
		}
		for i := 0; i < len(present); i++ {
			for j := i + 1; j < len(present); j++ {
				p := makePair(present[i], present[j])
				data := cooccurrence[p]
				if data == nil {
					data = &cooccurrenceData{}
					cooccurrence[p] = data
				}
				data.count++
				data.sentenceIDs = append(data.sentenceIDs, sentID)
			}
		}
	}
	return cooccurrence
}

type proximityData struct {
	count         int
	sentencePairs [][2]int
}

// detectProximityPairs finds character pairs mentioned within the
// proximity window of each other.
func (e *Extractor) detectProximityPairs(mentions map[string][]int) map[pair]*proximityData {
	characters := make([]string, 0, len(mentions))
	for character := range mentions {
		characters = append(characters, character)
	}
	sort.Strings(characters)

	proximity := make(map[pair]*proximityData)
	for i := 0; i < len(characters); i++ {
		for j := i + 1; j < len(characters); j++ {
			p := makePair(characters[i], characters[j])
			for _, sent1 := range mentions[characters[i]] {
				for _, sent2 := range mentions[characters[j]] {
					if abs(sent1-sent2) > e.window {
						continue
					}
					data := proximity[p]
					if data == nil {
						data = &proximityData{}
						proximity[p] = data
					}
					data.count++
					data.sentencePairs = append(data.sentencePairs, [2]int{sent1, sent2})
				}
			}
		}
	}
	return proximity
}

// detectProximityRelations scans the sentences around each proximity
// pair's mentions for relationship vocabulary.
func (e *Extractor) detectProximityRelations(proximity map[pair]*proximityData, sentences, lowered []string) []candidateRelation {
	var candidates []candidateRelation
	for _, p := range sortedPairs(proximity) {
		data := proximity[p]

		sentIDs := make(map[int]bool)
		for _, sp := range data.sentencePairs {
			start := max(0, min(sp[0], sp[1])-2)
			end := min(len(sentences), max(sp[0], sp[1])+3)
			for id := start; id < end; id++ {
				sentIDs[id] = true
			}
		}
		ordered := make([]int, 0, len(sentIDs))
		for id := range sentIDs {
			ordered = append(ordered, id)
		}
		sort.Ints(ordered)

		evidence := make(map[model.RelationType][]model.RelationEvidence)
		bothSeen := make(map[model.RelationType]bool)
		for _, sentID := range ordered {
			hasChar1 := characterInSentence(p.Character1, lowered[sentID])
			hasChar2 := characterInSentence(p.Character2, lowered[sentID])
			if !hasChar1 && !hasChar2 {
				continue
			}
			for _, pattern := range e.patterns {
				if !pattern.re.MatchString(lowered[sentID]) {
					continue
				}
				evidence[pattern.relationType] = append(evidence[pattern.relationType], model.RelationEvidence{
					SentenceID: sentID,
					Sentence:   sentences[sentID],
					Pattern:    pattern.raw,
				})
				if hasChar1 && hasChar2 {
					bothSeen[pattern.relationType] = true
				}
			}
		}

		for _, relationType := range sortedTypes(evidence) {
			found := evidence[relationType]
			candidates = append(candidates, candidateRelation{
				pair:          p,
				relationType:  relationType,
				confidence:    proximityConfidence(len(found), data.count, bothSeen[relationType]),
				evidenceCount: len(found),
				evidence:      found[:min(len(found), 3)],
				source:        "proximity",
			})
		}
	}
	return candidates
}

// proximityConfidence scores a proximity-based detection from its
// evidence volume.
func proximityConfidence(evidenceCount, proximityCount int, bothInSentence bool) float64 {
	base := min(float64(evidenceCount)/2.0, 0.85)
	if bothInSentence {
		base = min(base+0.1, 0.95)
	}
	if proximityCount > 5 {
		base = min(base+0.05, 0.95)
	}
	return base
}

// detectPossessiveRelations infers relations from possessive phrases like
// "his wife" in sentences where a character appears, paired with any other
// character mentioned within five sentences.
func (e *Extractor) detectPossessiveRelations(characters []string, mentions map[string][]int, sentences, lowered []string) []candidateRelation {
	var candidates []candidateRelation
	for _, character := range characters {
		for _, sentID := range mentions[character] {
			for _, pattern := range e.possessives {
				matches := pattern.re.FindAllString(lowered[sentID], -1)
				if len(matches) == 0 {
					continue
				}
				for _, other := range characters {
					if other == character {
						continue
					}
					if !mentionedNearby(other, sentID, lowered) {
						continue
					}
					candidates = append(candidates, candidateRelation{
						pair:          makePair(character, other),
						relationType:  pattern.relationType,
						confidence:    0.80,
						evidenceCount: len(matches),
						evidence: []model.RelationEvidence{{
							SentenceID: sentID,
							Sentence:   sentences[sentID],
							Pattern:    pattern.raw,
						}},
						source: "possessive",
					})
				}
			}
		}
	}
	return candidates
}

func mentionedNearby(character string, sentID int, lowered []string) bool {
	start := max(0, sentID-5)
	end := min(len(lowered), sentID+6)
	for id := start; id < end; id++ {
		if characterInSentence(character, lowered[id]) {
			return true
		}
	}
	return false
}

// mergeAndRank folds all candidate relations per pair into a single
// relation keyed by the highest-priority type and ranks pairs by overall
// strength.
func mergeAndRank(candidates []candidateRelation, cooccurrence map[pair]*cooccurrenceData, proximity map[pair]*proximityData) []*model.Relation {
	byPair := make(map[pair][]candidateRelation)
	for _, c := range candidates {
		c.confidence = min(c.confidence+float64(priorityOf(c.relationType))*0.02, 0.98)
		byPair[c.pair] = append(byPair[c.pair], c)
	}

	var relations []*model.Relation
	for _, p := range sortedPairs(byPair) {
		group := byPair[p]
		sort.SliceStable(group, func(i, j int) bool {
			pi, pj := priorityOf(group[i].relationType), priorityOf(group[j].relationType)
			if pi != pj {
				return pi > pj
			}
			if group[i].confidence != group[j].confidence {
				return group[i].confidence > group[j].confidence
			}
			return group[i].evidenceCount > group[j].evidenceCount
		})

		primary := group[0]
		allTypes := uniqueTypes(group)

		coocCount := 0
		if data := cooccurrence[p]; data != nil {
			coocCount = data.count
		}
		proxCount := 0
		if data := proximity[p]; data != nil {
			proxCount = data.count
		}

		relations = append(relations, &model.Relation{
			ID:            uuid.New(),
			Character1:    p.Character1,
			Character2:    p.Character2,
			Type:          primary.relationType,
			Confidence:    primary.confidence,
			Strength:      overallStrength(primary.confidence, coocCount, proxCount, len(group)),
			EvidenceCount: primary.evidenceCount,
			Cooccurrence:  coocCount,
			Evidence:      primary.evidence,
			Metadata: model.Metadata{
				"all_types":       allTypes,
				"proximity_count": proxCount,
				"source":          primary.source,
			},
			CreatedAt: time.Now(),
		})
	}

	sort.SliceStable(relations, func(i, j int) bool {
		return relations[i].Strength > relations[j].Strength
	})
	return relations
}

func priorityOf(t model.RelationType) int {
	if p, ok := relationPriority[t]; ok {
		return p
	}
	return defaultPriority
}

// overallStrength combines confidence with co-occurrence, proximity and
// relation type diversity.
func overallStrength(confidence float64, cooccurrence, proximity, relationCount int) float64 {
	score := confidence*0.4 +
		min(float64(cooccurrence)/10.0, 0.2) +
		min(float64(proximity)/20.0, 0.2) +
		min(float64(relationCount)/5.0, 0.2)
	return min(score, 1.0)
}

func uniqueTypes(group []candidateRelation) []string {
	seen := make(map[model.RelationType]bool)
	var types []string
	for _, c := range group {
		if !seen[c.relationType] {
			seen[c.relationType] = true
			types = append(types, string(c.relationType))
		}
	}
	return types
}

// BuildGraph assembles the adjacency view over the detected relations.
func BuildGraph(relations []*model.Relation) *model.CharacterGraph {
	graph := &model.CharacterGraph{Adjacency: map[string][]*model.Relation{}}

	seen := make(map[string]bool)
	for _, rel := range relations {
		for _, character := range []string{rel.Character1, rel.Character2} {
			if !seen[character] {
				seen[character] = true
				graph.Characters = append(graph.Characters, character)
			}
			graph.Adjacency[character] = append(graph.Adjacency[character], rel)
		}
	}
	sort.Strings(graph.Characters)
	return graph
}

// TraversalResult is one character reached during a graph walk, with its
// distance and path from the source.
type TraversalResult struct {
	Character string
	Distance  int
	Path      []string
}

// Traverse walks the character graph breadth-first from the given
// character, up to maxHops.
func Traverse(graph *model.CharacterGraph, source string, maxHops int) []*TraversalResult {
	if _, ok := graph.Adjacency[source]; !ok {
		return nil
	}

	visited := map[string]bool{source: true}
	queue := []TraversalResult{{Character: source, Distance: 0, Path: []string{source}}}

	var results []*TraversalResult
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		results = append(results, &current)

		if current.Distance >= maxHops {
			continue
		}

		neighbors := graph.Neighbors(current.Character)
		sort.Strings(neighbors)
		for _, neighbor := range neighbors {
			if visited[neighbor] {
				continue
			}
			visited[neighbor] = true

			path := make([]string, len(current.Path))
			copy(path, current.Path)
			path = append(path, neighbor)

			queue = append(queue, TraversalResult{
				Character: neighbor,
				Distance:  current.Distance + 1,
				Path:      path,
			})
		}
	}
	return results
}

func sortedPairs[V any](m map[pair]V) []pair {
	pairs := make([]pair, 0, len(m))
	for p := range m {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Character1 != pairs[j].Character1 {
			return pairs[i].Character1 < pairs[j].Character1
		}
		return pairs[i].Character2 < pairs[j].Character2
	})
	return pairs
}

func sortedTypes[V any](m map[model.RelationType]V) []model.RelationType {
	types := make([]model.RelationType, 0, len(m))
	for t := range m {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
