package model

// CandidateStats holds the capitalization statistics accumulated for one
// candidate string during preprocessing. Built once per document, read-only
// for all extraction methods afterwards.
type CandidateStats struct {
	Text                string `json:"text"`
	TotalMentions       int    `json:"total_mentions"`
	CapitalizedMentions int    `json:"capitalized_mentions"`
	MidSentenceCount    int    `json:"mid_sentence_count"`
	SentenceStartCount  int    `json:"sentence_start_count"`
	SentenceIDs         []int  `json:"sentence_ids"`
}

// ConsistencyScore returns the capitalization consistency of the candidate:
// the capitalized ratio times the mid-sentence ratio. A candidate that was
// only ever seen at sentence start gets a neutral 0.5 because sentence-initial
// capitalization carries no signal.
func (c *CandidateStats) ConsistencyScore() float64 {
	if c.TotalMentions == 0 {
		return 0.0
	}
	if c.MidSentenceCount == 0 {
		return 0.5
	}
	capRatio := float64(c.CapitalizedMentions) / float64(c.TotalMentions)
	midRatio := float64(c.MidSentenceCount) / float64(c.TotalMentions)
	return capRatio * midRatio
}

// CandidateIndex is the shared read-only input of all three extraction
// methods: the segmented sentences, the proper-noun-like n-gram candidate
// sets and the per-candidate capitalization statistics.
type CandidateIndex struct {
	Sentences []string   `json:"sentences"`
	Tokens    [][]string `json:"-"`

	Unigrams []string `json:"unigrams"`
	Bigrams  []string `json:"bigrams"`
	Trigrams []string `json:"trigrams"`

	Stats map[string]*CandidateStats `json:"stats"`
}

// SentenceCount returns the number of sentences in the index.
func (i *CandidateIndex) SentenceCount() int {
	return len(i.Sentences)
}

// AllCandidates returns the union of unigram, bigram and trigram candidates
// in deterministic (sorted per set) order.
func (i *CandidateIndex) AllCandidates() []string {
	all := make([]string, 0, len(i.Unigrams)+len(i.Bigrams)+len(i.Trigrams))
	all = append(all, i.Unigrams...)
	all = append(all, i.Bigrams...)
	all = append(all, i.Trigrams...)
	return all
}
