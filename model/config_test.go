package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Run("Defaults validate", func(t *testing.T) {
		config := DefaultConfig()
		require.NoError(t, config.Validate())
	})

	t.Run("Method weights cover all three methods", func(t *testing.T) {
		config := DefaultConfig()
		assert.Contains(t, config.Ensemble.MethodWeights, MethodCapitalization)
		assert.Contains(t, config.Ensemble.MethodWeights, MethodStatistical)
		assert.Contains(t, config.Ensemble.MethodWeights, MethodEmbeddings)
	})
}

func TestConfigValidate(t *testing.T) {
	t.Run("Empty method weights rejected", func(t *testing.T) {
		config := DefaultConfig()
		config.Ensemble.MethodWeights = map[string]float64{}
		assert.Error(t, config.Validate())
	})

	t.Run("Zero-sum method weights rejected", func(t *testing.T) {
		config := DefaultConfig()
		config.Ensemble.MethodWeights = map[string]float64{
			MethodCapitalization: 0.0,
			MethodStatistical:    0.0,
			MethodEmbeddings:     0.0,
		}
		assert.Error(t, config.Validate())
	})

	t.Run("Weight outside unit interval rejected", func(t *testing.T) {
		config := DefaultConfig()
		config.Ensemble.MethodWeights[MethodEmbeddings] = 1.5
		assert.Error(t, config.Validate())
	})

	t.Run("Confidence floor outside unit interval rejected", func(t *testing.T) {
		config := DefaultConfig()
		config.Ensemble.SingleWordConfidence = -0.1
		assert.Error(t, config.Validate())
	})

	t.Run("Zero proximity window rejected", func(t *testing.T) {
		config := DefaultConfig()
		config.ProximityWindow = 0
		assert.Error(t, config.Validate())
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("Missing file returns error", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("Invalid yaml returns error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.yaml")
		require.NoError(t, os.WriteFile(path, []byte("min_document_length: [oops"), 0644))

		_, err := LoadConfig(path)
		assert.Error(t, err)
	})

	t.Run("File values overlay defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `min_document_length: 200
capitalization:
  min_mentions: 5
ensemble:
  method_weights:
    capitalization: 0.2
    statistical: 0.2
    embeddings: 0.6
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		config, err := LoadConfig(path)
		require.NoError(t, err)

		assert.Equal(t, 200, config.MinDocumentLength)
		assert.Equal(t, 5, config.Capitalization.MinMentions)
		assert.Equal(t, 0.6, config.Ensemble.MethodWeights[MethodEmbeddings])
		// Untouched values keep their defaults.
		assert.Equal(t, 2, config.Capitalization.MinMidSentence)
		assert.Equal(t, 15, config.Statistical.TopK)
		assert.Equal(t, 10, config.ProximityWindow)
		require.NoError(t, config.Validate())
	})
}
