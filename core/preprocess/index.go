package preprocess

import (
	"sort"
	"strings"

	"github.com/siherrmann/storygraph/model"
)

// minCandidateLength is the minimum token length for a candidate unigram.
const minCandidateLength = 3

// stopwords are function words that pass the shape tests whenever they open
// a sentence but can never name a character. Compared lowercase.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "but": {}, "for": {}, "nor": {}, "yet": {},
	"that": {}, "this": {}, "these": {}, "those": {}, "there": {}, "here": {},
	"then": {}, "than": {}, "when": {}, "where": {}, "while": {}, "what": {},
	"which": {}, "who": {}, "whom": {}, "whose": {}, "why": {}, "how": {},
	"she": {}, "her": {}, "hers": {}, "him": {}, "his": {}, "they": {},
	"them": {}, "their": {}, "theirs": {}, "its": {}, "was": {}, "were": {},
	"are": {}, "been": {}, "being": {}, "has": {}, "had": {}, "have": {},
	"will": {}, "would": {}, "could": {}, "should": {}, "may": {},
	"might": {}, "must": {}, "not": {}, "now": {}, "all": {}, "any": {},
	"some": {}, "such": {}, "one": {}, "two": {}, "out": {}, "off": {},
	"own": {}, "did": {}, "does": {}, "said": {}, "also": {}, "very": {},
	"just": {}, "only": {}, "every": {}, "each": {}, "both": {}, "few": {},
	"more": {}, "most": {}, "other": {}, "too": {}, "into": {}, "over": {},
	"upon": {}, "under": {}, "until": {}, "through": {}, "during": {},
	"between": {}, "because": {}, "against": {}, "about": {}, "after": {},
	"before": {}, "again": {}, "once": {}, "later": {}, "soon": {},
	"still": {}, "from": {}, "with": {}, "down": {}, "above": {},
	"below": {}, "everyone": {}, "everybody": {}, "someone": {},
	"somebody": {}, "anyone": {}, "anybody": {},
	"nobody": {}, "nothing": {}, "something": {}, "anything": {},
	"everything": {}, "people": {},
}

// BuildCandidateIndex builds the shared read-only input of the three
// extraction methods from segmented sentences. Deterministic given sentence
// order; no side effects.
//
// A token qualifies as a candidate unigram if it is alphabetic, at least
// three characters, not a function word, not fully upper-case and
// capitalized in at least one occurrence. A bigram or trigram qualifies only if every constituent token
// independently qualifies, which keeps "The yellow" out while admitting
// "James Dillingham".
func BuildCandidateIndex(sentences []string) *model.CandidateIndex {
	index := &model.CandidateIndex{
		Sentences: sentences,
		Tokens:    make([][]string, len(sentences)),
		Stats:     make(map[string]*model.CandidateStats),
	}

	for i, sentence := range sentences {
		index.Tokens[i] = Tokenize(sentence)
	}

	qualifying := collectQualifyingTokens(index.Tokens)

	unigrams := make(map[string]struct{})
	bigrams := make(map[string]struct{})
	trigrams := make(map[string]struct{})

	for sentID, tokens := range index.Tokens {
		for pos, token := range tokens {
			norm := titleCase(token)
			if _, ok := qualifying[norm]; !ok {
				continue
			}

			unigrams[norm] = struct{}{}
			accumulate(index.Stats, norm, sentID, pos == 0, isCapitalized(token))

			// Multi-word candidates require every token to qualify and
			// every literal occurrence to be capitalized.
			for _, n := range []int{2, 3} {
				if pos+n > len(tokens) {
					continue
				}
				parts := tokens[pos : pos+n]
				if !allQualify(parts, qualifying) || !allCapitalized(parts) {
					continue
				}
				name := joinTitleCase(parts)
				if n == 2 {
					bigrams[name] = struct{}{}
				} else {
					trigrams[name] = struct{}{}
				}
				accumulate(index.Stats, name, sentID, pos == 0, true)
			}
		}
	}

	index.Unigrams = sortedKeys(unigrams)
	index.Bigrams = sortedKeys(bigrams)
	index.Trigrams = sortedKeys(trigrams)

	return index
}

// collectQualifyingTokens finds the normalized tokens that pass the
// candidate test, which needs one full scan because capitalization at any
// occurrence qualifies the token everywhere.
func collectQualifyingTokens(tokenized [][]string) map[string]struct{} {
	everCapitalized := make(map[string]bool)

	for _, tokens := range tokenized {
		for _, token := range tokens {
			if !isAlphabetic(token) || len([]rune(token)) < minCandidateLength || isAllUpper(token) {
				continue
			}
			if _, stop := stopwords[strings.ToLower(token)]; stop {
				continue
			}
			norm := titleCase(token)
			if isCapitalized(token) {
				everCapitalized[norm] = true
			} else if _, seen := everCapitalized[norm]; !seen {
				everCapitalized[norm] = false
			}
		}
	}

	qualifying := make(map[string]struct{})
	for norm, capitalized := range everCapitalized {
		if capitalized {
			qualifying[norm] = struct{}{}
		}
	}
	return qualifying
}

func accumulate(stats map[string]*model.CandidateStats, name string, sentID int, sentenceStart bool, capitalized bool) {
	s, ok := stats[name]
	if !ok {
		s = &model.CandidateStats{Text: name}
		stats[name] = s
	}
	s.TotalMentions++
	if capitalized {
		s.CapitalizedMentions++
	}
	if sentenceStart {
		s.SentenceStartCount++
	} else {
		s.MidSentenceCount++
	}
	if len(s.SentenceIDs) == 0 || s.SentenceIDs[len(s.SentenceIDs)-1] != sentID {
		s.SentenceIDs = append(s.SentenceIDs, sentID)
	}
}

func allQualify(tokens []string, qualifying map[string]struct{}) bool {
	for _, t := range tokens {
		if _, ok := qualifying[titleCase(t)]; !ok {
			return false
		}
	}
	return true
}

func allCapitalized(tokens []string) bool {
	for _, t := range tokens {
		if !isCapitalized(t) {
			return false
		}
	}
	return true
}

func joinTitleCase(tokens []string) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = titleCase(t)
	}
	return strings.Join(parts, " ")
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
