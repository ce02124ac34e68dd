package database

import (
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/storygraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelationsNewRelationsDBHandler(t *testing.T) {
	database := initDB(t)

	_, err := NewDocumentsDBHandler(database, true)
	require.NoError(t, err)

	t.Run("Valid call NewRelationsDBHandler", func(t *testing.T) {
		relationsDbHandler, err := NewRelationsDBHandler(database, true)
		assert.NoError(t, err)
		require.NotNil(t, relationsDbHandler)
	})

	t.Run("Invalid call NewRelationsDBHandler with nil database", func(t *testing.T) {
		_, err := NewRelationsDBHandler(nil, false)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "database connection is nil")
	})
}

func TestRelationsInsertAndSelect(t *testing.T) {
	database := initDB(t)

	documentsDbHandler, err := NewDocumentsDBHandler(database, true)
	require.NoError(t, err)
	relationsDbHandler, err := NewRelationsDBHandler(database, true)
	require.NoError(t, err)

	doc := insertTestDocument(t, documentsDbHandler, "Relations Test")

	t.Run("Insert relation", func(t *testing.T) {
		relation := &model.Relation{
			DocumentRID:   doc.RID,
			Character1:    "Della",
			Character2:    "Jim",
			Type:          model.RelationSpouse,
			Confidence:    0.98,
			Strength:      0.79,
			EvidenceCount: 4,
			Cooccurrence:  2,
			Metadata:      map[string]interface{}{"source": "proximity"},
		}

		err := relationsDbHandler.InsertRelation(relation)
		assert.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, relation.ID)

		found, err := relationsDbHandler.SelectRelation(relation.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RelationSpouse, found.Type)
		assert.InDelta(t, 0.98, found.Confidence, 1e-9)
		assert.Equal(t, 2, found.Cooccurrence)
	})

	t.Run("Insert is an upsert per document and pair", func(t *testing.T) {
		first := &model.Relation{
			DocumentRID: doc.RID, Character1: "Anna", Character2: "Bertha",
			Type: model.RelationCompanions, Confidence: 0.5, Strength: 0.4,
		}
		require.NoError(t, relationsDbHandler.InsertRelation(first))

		second := &model.Relation{
			DocumentRID: doc.RID, Character1: "Anna", Character2: "Bertha",
			Type: model.RelationCloseFriends, Confidence: 0.7, Strength: 0.6,
		}
		require.NoError(t, relationsDbHandler.InsertRelation(second))
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, model.RelationCloseFriends, second.Type)
	})
}

func TestRelationsSelectByDocumentAndCharacter(t *testing.T) {
	database := initDB(t)

	documentsDbHandler, err := NewDocumentsDBHandler(database, true)
	require.NoError(t, err)
	relationsDbHandler, err := NewRelationsDBHandler(database, true)
	require.NoError(t, err)

	doc := insertTestDocument(t, documentsDbHandler, "Relations Select Test")

	relations := []*model.Relation{
		{DocumentRID: doc.RID, Character1: "Della", Character2: "Jim", Type: model.RelationSpouse, Strength: 0.8},
		{DocumentRID: doc.RID, Character1: "Della", Character2: "Sofronie", Type: model.RelationCustomerMerchant, Strength: 0.3},
		{DocumentRID: doc.RID, Character1: "Jim", Character2: "Sofronie", Type: model.RelationCooccurrence, Strength: 0.2},
	}
	for _, relation := range relations {
		require.NoError(t, relationsDbHandler.InsertRelation(relation))
	}

	t.Run("Select by document orders by strength", func(t *testing.T) {
		found, err := relationsDbHandler.SelectRelationsByDocument(doc.RID)
		assert.NoError(t, err)
		require.Len(t, found, 3)
		assert.Equal(t, model.RelationSpouse, found[0].Type)
	})

	t.Run("Select by character matches both sides", func(t *testing.T) {
		found, err := relationsDbHandler.SelectRelationsByCharacter(doc.RID, "Sofronie")
		assert.NoError(t, err)
		require.Len(t, found, 2)
	})

	t.Run("Delete relations by document", func(t *testing.T) {
		err := relationsDbHandler.DeleteRelationsByDocument(doc.RID)
		assert.NoError(t, err)

		found, err := relationsDbHandler.SelectRelationsByDocument(doc.RID)
		assert.NoError(t, err)
		assert.Empty(t, found)
	})
}
