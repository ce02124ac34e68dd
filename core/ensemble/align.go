// Package ensemble reconciles the outputs of the three extraction methods
// into one entity list. The voter runs a fixed stage order: alignment,
// scoring, conflict resolution, variant re-merge, quality control.
package ensemble

import (
	"regexp"
	"sort"
	"strings"

	"github.com/siherrmann/storygraph/model"
)

var possessiveRe = regexp.MustCompile(`'?s$`)

// AreSameEntity reports whether two surface names denote the same
// character: case-insensitive exact match, meaningful substring containment
// (shorter side at least 3 characters), shared first token of at least 3
// characters, or equality after stripping a trailing possessive suffix.
//
// The relation is symmetric but not transitive. Alignment deliberately runs
// a single pass with a processed set instead of a transitive closure, which
// would over-merge distinct characters sharing a first name.
func AreSameEntity(name1, name2 string) bool {
	n1 := strings.ToLower(strings.TrimSpace(name1))
	n2 := strings.ToLower(strings.TrimSpace(name2))

	if n1 == n2 {
		return true
	}

	if strings.Contains(n1, n2) || strings.Contains(n2, n1) {
		if min(len(n1), len(n2)) >= 3 {
			return true
		}
	}

	parts1 := strings.Fields(n1)
	parts2 := strings.Fields(n2)
	if len(parts1) > 0 && len(parts2) > 0 && parts1[0] == parts2[0] && len(parts1[0]) >= 3 {
		return true
	}

	return possessiveRe.ReplaceAllString(n1, "") == possessiveRe.ReplaceAllString(n2, "")
}

// Align groups the candidate names of all methods into alignment entries
// keyed by canonical name. Names are traversed in sorted order so repeated
// runs over the same inputs give identical groupings.
func Align(methodResults map[string]*model.MethodResult) map[string]*model.AlignmentEntry {
	methods := sortedMethodNames(methodResults)

	nameSet := make(map[string]bool)
	for _, method := range methods {
		for _, c := range methodResults[method].Candidates {
			nameSet[c.Name] = true
		}
	}
	names := make([]string, 0, len(nameSet))
	for name := range nameSet {
		names = append(names, name)
	}
	sort.Strings(names)

	alignment := make(map[string]*model.AlignmentEntry)
	processed := make(map[string]bool)

	for _, name := range names {
		if processed[name] {
			continue
		}

		matches := findCrossMethodMatches(name, methods, methodResults)
		if len(matches) == 0 {
			continue
		}

		canonical := SelectCanonicalName(matches)
		alignment[canonical] = &model.AlignmentEntry{
			CanonicalName: canonical,
			Matches:       matches,
			DetectedBy:    sortedKeys(matches),
			AllVariants:   collectVariants(matches),
		}

		processed[canonical] = true
		for _, methodMatches := range matches {
			for _, matched := range methodMatches {
				processed[matched] = true
			}
		}
	}

	return alignment
}

// findCrossMethodMatches returns, per method, the candidate names judged to
// denote the same entity as the given name.
func findCrossMethodMatches(name string, methods []string, methodResults map[string]*model.MethodResult) map[string][]string {
	matches := make(map[string][]string)
	for _, method := range methods {
		var methodMatches []string
		for _, c := range methodResults[method].Candidates {
			if AreSameEntity(name, c.Name) {
				methodMatches = append(methodMatches, c.Name)
			}
		}
		if len(methodMatches) > 0 {
			matches[method] = methodMatches
		}
	}
	return matches
}

// SelectCanonicalName picks the display name of an aligned group: any
// multi-word name beats a single word, the embeddings method is trusted
// most among multi-word names, otherwise the longest string wins with a
// lexicographic tie-break.
func SelectCanonicalName(matches map[string][]string) string {
	var allNames []string
	for _, method := range sortedKeys(matches) {
		allNames = append(allNames, matches[method]...)
	}

	var multiWord []string
	for _, name := range allNames {
		if len(strings.Fields(name)) > 1 {
			multiWord = append(multiWord, name)
		}
	}

	if len(multiWord) > 0 {
		for _, name := range matches[model.MethodEmbeddings] {
			if len(strings.Fields(name)) > 1 {
				return name
			}
		}
		return longestName(multiWord)
	}

	if embeddings := matches[model.MethodEmbeddings]; len(embeddings) > 0 {
		return embeddings[0]
	}
	return longestName(allNames)
}

// longestName returns the longest string, lexicographically smallest on
// equal length.
func longestName(names []string) string {
	longest := ""
	for _, name := range names {
		if len(name) > len(longest) || (len(name) == len(longest) && name < longest) {
			longest = name
		}
	}
	return longest
}

func collectVariants(matches map[string][]string) []string {
	set := make(map[string]bool)
	for _, methodMatches := range matches {
		for _, name := range methodMatches {
			set[name] = true
		}
	}
	variants := make([]string, 0, len(set))
	for name := range set {
		variants = append(variants, name)
	}
	sort.Strings(variants)
	return variants
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedMethodNames(methodResults map[string]*model.MethodResult) []string {
	names := make([]string, 0, len(methodResults))
	for name := range methodResults {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
