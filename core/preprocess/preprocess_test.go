package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	t.Run("Collapses whitespace runs", func(t *testing.T) {
		cleaned := CleanText("Maria   walked\n\tto the   market.")
		assert.Equal(t, "Maria walked to the market.", cleaned)
	})

	t.Run("Strips disallowed characters but keeps punctuation", func(t *testing.T) {
		cleaned := CleanText(`Maria said: "Hello, world!" @#$%`)
		assert.Equal(t, `Maria said: "Hello, world!"`, cleaned)
	})

	t.Run("Collapses repeated terminal punctuation", func(t *testing.T) {
		cleaned := CleanText("What happened?? Nothing...")
		assert.Equal(t, "What happened? Nothing.", cleaned)
	})

	t.Run("Trims surrounding whitespace", func(t *testing.T) {
		cleaned := CleanText("  padded text  ")
		assert.Equal(t, "padded text", cleaned)
	})
}

func TestSegmentSentences(t *testing.T) {
	t.Run("Splits on terminal punctuation", func(t *testing.T) {
		text := "Maria walked to the market. She bought apples there! Did she pay? She always did."
		sentences := SegmentSentences(text)

		require.Len(t, sentences, 4)
		assert.Equal(t, "Maria walked to the market.", sentences[0])
		assert.Equal(t, "She bought apples there!", sentences[1])
		assert.Equal(t, "Did she pay?", sentences[2])
		assert.Equal(t, "She always did.", sentences[3])
	})

	t.Run("Drops short fragments", func(t *testing.T) {
		sentences := SegmentSentences("Yes. Maria answered the question slowly.")

		require.Len(t, sentences, 1)
		assert.Equal(t, "Maria answered the question slowly.", sentences[0])
	})

	t.Run("Empty text yields no sentences", func(t *testing.T) {
		assert.Empty(t, SegmentSentences(""))
	})
}

func TestTokenize(t *testing.T) {
	t.Run("Strips surrounding punctuation", func(t *testing.T) {
		tokens := Tokenize(`"Maria," she said.`)
		assert.Equal(t, []string{"Maria", "she", "said"}, tokens)
	})

	t.Run("Keeps internal apostrophes", func(t *testing.T) {
		tokens := Tokenize("Della's hair fell to her knees.")
		assert.Contains(t, tokens, "Della's")
	})

	t.Run("Empty sentence yields no tokens", func(t *testing.T) {
		assert.Empty(t, Tokenize(""))
	})
}

func TestBuildCandidateIndex(t *testing.T) {
	t.Run("Collects capitalized unigram candidates", func(t *testing.T) {
		sentences := []string{
			"Maria walked to the market.",
			"The merchant greeted Maria warmly.",
			"Maria smiled at the merchant.",
		}

		index := BuildCandidateIndex(sentences)

		assert.Contains(t, index.Unigrams, "Maria")
		stats, ok := index.Stats["Maria"]
		require.True(t, ok)
		assert.Equal(t, 3, stats.TotalMentions)
		assert.Equal(t, 3, stats.CapitalizedMentions)
		assert.Equal(t, 2, stats.SentenceStartCount)
		assert.Equal(t, 1, stats.MidSentenceCount)
		assert.Equal(t, []int{0, 1, 2}, stats.SentenceIDs)
	})

	t.Run("Lowercase-only tokens are not candidates", func(t *testing.T) {
		index := BuildCandidateIndex([]string{"the merchant sold apples to the crowd."})
		assert.NotContains(t, index.Unigrams, "Merchant")
	})

	t.Run("Token capitalized anywhere qualifies all its occurrences", func(t *testing.T) {
		sentences := []string{
			"The merchant counted his coins slowly.",
			"Merchant is what they called him around town.",
		}

		index := BuildCandidateIndex(sentences)

		require.Contains(t, index.Unigrams, "Merchant")
		stats := index.Stats["Merchant"]
		assert.Equal(t, 2, stats.TotalMentions)
		assert.Equal(t, 1, stats.CapitalizedMentions)
	})

	t.Run("Rejects short tokens and acronyms", func(t *testing.T) {
		index := BuildCandidateIndex([]string{
			"He met Jo at the NASA office yesterday morning.",
		})

		assert.NotContains(t, index.Unigrams, "Jo")
		assert.NotContains(t, index.Unigrams, "Nasa")
	})

	t.Run("Builds multi-word candidates from qualifying tokens only", func(t *testing.T) {
		sentences := []string{
			"James Dillingham Young opened the door.",
			"Everyone knew James Dillingham Young by name.",
		}

		index := BuildCandidateIndex(sentences)

		assert.Contains(t, index.Bigrams, "James Dillingham")
		assert.Contains(t, index.Bigrams, "Dillingham Young")
		assert.Contains(t, index.Trigrams, "James Dillingham Young")

		stats := index.Stats["James Dillingham Young"]
		require.NotNil(t, stats)
		assert.Equal(t, 2, stats.TotalMentions)
		assert.Equal(t, []int{0, 1}, stats.SentenceIDs)
	})

	t.Run("Sentence-initial capitalized words are not multi-word anchors alone", func(t *testing.T) {
		index := BuildCandidateIndex([]string{
			"The yellow house stood on the hill.",
			"The rain fell all day on the roof.",
		})

		assert.NotContains(t, index.Bigrams, "The Yellow")
	})

	t.Run("Function words are never candidates", func(t *testing.T) {
		index := BuildCandidateIndex([]string{
			"Then the rain stopped over the square.",
			"Then the sun returned to the square.",
			"Then the birds sang above the square.",
		})

		assert.NotContains(t, index.Unigrams, "Then")
		assert.NotContains(t, index.Unigrams, "The")
		assert.Empty(t, index.Unigrams)
	})

	t.Run("Candidate lists are sorted", func(t *testing.T) {
		index := BuildCandidateIndex([]string{
			"Zelda met Anna and Maria near the fountain.",
		})

		assert.Equal(t, []string{"Anna", "Maria", "Zelda"}, index.Unigrams)
	})
}
