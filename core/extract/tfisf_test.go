package extract

import (
	"math"
	"testing"

	"github.com/siherrmann/storygraph/core/preprocess"
	"github.com/siherrmann/storygraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatisticalExtractor(t *testing.T) {
	config := model.DefaultConfig().Statistical
	extractor := NewStatisticalExtractor(config, nil)

	t.Run("Method name is stable", func(t *testing.T) {
		assert.Equal(t, model.MethodStatistical, extractor.Name())
	})

	t.Run("Empty index yields empty result", func(t *testing.T) {
		result, err := extractor.Extract(&model.CandidateIndex{})

		require.NoError(t, err)
		assert.Empty(t, result.Candidates)
	})

	t.Run("TF-ISF score matches the formula", func(t *testing.T) {
		sentences := []string{
			"Maria walked to the market.",
			"Maria bought the red apples.",
			"Maria smiled at the merchant.",
			"Maria waved at the children.",
			"Maria turned toward the street.",
			"Nobody else was walking around.",
			"Rain started falling over town.",
			"Shops were closing one by one.",
			"Lanterns flickered in the dusk.",
			"Night settled over the square.",
		}
		index := preprocess.BuildCandidateIndex(sentences)

		result, err := extractor.Extract(index)

		require.NoError(t, err)
		maria := findCandidate(result.Candidates, "Maria")
		require.NotNil(t, maria)

		// SF 5 of 10, one occurrence per 5-token sentence.
		isf := math.Log(10.0 / 5.0)
		avgTF := 1.0 / 5.0
		expected := avgTF*isf + 0.05 + min(5.0/100.0, 0.1)
		assert.InDelta(t, expected, maria.Score, 1e-9)
		assert.Equal(t, 5, maria.Mentions)
		assert.InDelta(t, avgTF*isf, maria.Metadata["tfisf_score"].(float64), 1e-9)
	})

	t.Run("Ubiquitous terms are filtered out", func(t *testing.T) {
		var sentences []string
		for i := 0; i < 10; i++ {
			sentences = append(sentences, "Maria kept walking through town.")
		}
		index := preprocess.BuildCandidateIndex(sentences)

		result, err := extractor.Extract(index)

		require.NoError(t, err)
		// SF 10 of 10 exceeds the 0.8 ceiling.
		assert.Nil(t, findCandidate(result.Candidates, "Maria"))
	})

	t.Run("Terms in a single sentence are filtered out", func(t *testing.T) {
		sentences := []string{
			"Maria walked to the market.",
			"Somebody else stayed at home.",
			"The streets were very quiet.",
		}
		index := preprocess.BuildCandidateIndex(sentences)

		result, err := extractor.Extract(index)

		require.NoError(t, err)
		assert.Nil(t, findCandidate(result.Candidates, "Maria"))
	})

	t.Run("Scores stay within bounds", func(t *testing.T) {
		// A rare dense term has a raw TF-ISF far above 1: two mentions per
		// three-token sentence in 2 of 100 sentences gives
		// (2/3)*ln(100/2), about 2.6.
		sentences := []string{
			"Maria met Maria.",
			"Maria saw Maria.",
		}
		for i := 0; i < 98; i++ {
			sentences = append(sentences, "the lamps went out slowly.")
		}
		index := preprocess.BuildCandidateIndex(sentences)

		result, err := extractor.Extract(index)

		require.NoError(t, err)
		maria := findCandidate(result.Candidates, "Maria")
		require.NotNil(t, maria)
		assert.Greater(t, maria.Metadata["tfisf_score"].(float64), 1.0)
		assert.Equal(t, 1.0, maria.Score)
		for _, c := range result.Candidates {
			assert.GreaterOrEqual(t, c.Score, 0.0)
			assert.LessOrEqual(t, c.Score, 1.0)
		}
	})

	t.Run("Top-K caps the candidate list", func(t *testing.T) {
		smallK := config
		smallK.TopK = 1
		limited := NewStatisticalExtractor(smallK, nil)

		sentences := []string{
			"Maria met Anna at noon.",
			"Maria greeted Anna again warmly.",
			"Maria and Anna left together.",
			"The square emptied out slowly.",
			"Doors were shut one after another.",
			"Dust settled over the stalls.",
			"Evening came without any wind.",
			"Stars appeared above the rooftops.",
		}
		index := preprocess.BuildCandidateIndex(sentences)

		result, err := limited.Extract(index)

		require.NoError(t, err)
		assert.Len(t, result.Candidates, 1)
	})
}

func TestStringSimilarity(t *testing.T) {
	t.Run("Exact match ignoring case", func(t *testing.T) {
		assert.Equal(t, 1.0, StringSimilarity("Maria", "maria"))
	})

	t.Run("Substring scales with length ratio", func(t *testing.T) {
		assert.InDelta(t, 3.0/9.0, StringSimilarity("Jim", "Jim Young"), 1e-9)
	})

	t.Run("Shared first token of multi-word names", func(t *testing.T) {
		assert.InDelta(t, 0.7, StringSimilarity("Maria Lopez", "Maria Smith"), 1e-9)
	})

	t.Run("Unrelated names fall back to character overlap", func(t *testing.T) {
		// {b,o} vs {t,o,m}: one shared of four distinct characters.
		assert.InDelta(t, 0.25, StringSimilarity("Bob", "Tom"), 1e-9)
	})
}

func findCandidate(candidates []*model.ScoredCandidate, name string) *model.ScoredCandidate {
	for _, c := range candidates {
		if c.Name == name {
			return c
		}
	}
	return nil
}
