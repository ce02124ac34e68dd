package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/storygraph/helper"
	"github.com/siherrmann/storygraph/model"
	"github.com/siherrmann/storygraph/sql"
)

// RelationsDBHandlerFunctions defines the interface for Relations database operations.
type RelationsDBHandlerFunctions interface {
	InsertRelation(relation *model.Relation) error
	SelectRelation(id uuid.UUID) (*model.Relation, error)
	SelectRelationsByDocument(documentRID uuid.UUID) ([]*model.Relation, error)
	SelectRelationsByCharacter(documentRID uuid.UUID, character string) ([]*model.Relation, error)
	DeleteRelation(id uuid.UUID) error
	DeleteRelationsByDocument(documentRID uuid.UUID) error
}

// RelationsDBHandler handles relation-related database operations
type RelationsDBHandler struct {
	db *helper.Database
}

// NewRelationsDBHandler creates a new relations database handler.
// It initializes the database connection and loads relation-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewRelationsDBHandler(db *helper.Database, force bool) (*RelationsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	relationsDbHandler := &RelationsDBHandler{
		db: db,
	}

	err := sql.LoadRelationsSql(relationsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load relations sql", err)
	}

	err = relationsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized RelationsDBHandler")

	return relationsDbHandler, nil
}

// CreateTable creates the 'relations' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *RelationsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Use the SQL init() function to create all tables and indexes
	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_relations();`)
	if err != nil {
		log.Panicf("error initializing relations table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table relations")

	return nil
}

// InsertRelation inserts a new relation, updating it if the document
// already has one for the same character pair.
func (h *RelationsDBHandler) InsertRelation(relation *model.Relation) error {
	if relation.ID == uuid.Nil {
		relation.ID = uuid.New()
	}

	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_relation($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		relation.ID,
		relation.DocumentRID,
		relation.Character1,
		relation.Character2,
		relation.Type,
		relation.Confidence,
		relation.Strength,
		relation.EvidenceCount,
		relation.Cooccurrence,
		relation.Metadata,
	)

	err := row.Scan(
		&relation.ID,
		&relation.DocumentRID,
		&relation.Character1,
		&relation.Character2,
		&relation.Type,
		&relation.Confidence,
		&relation.Strength,
		&relation.EvidenceCount,
		&relation.Cooccurrence,
		&relation.Metadata,
		&relation.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectRelation retrieves a relation by ID
func (h *RelationsDBHandler) SelectRelation(id uuid.UUID) (*model.Relation, error) {
	relation := &model.Relation{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_relation($1)`,
		id,
	)

	err := row.Scan(
		&relation.ID,
		&relation.DocumentRID,
		&relation.Character1,
		&relation.Character2,
		&relation.Type,
		&relation.Confidence,
		&relation.Strength,
		&relation.EvidenceCount,
		&relation.Cooccurrence,
		&relation.Metadata,
		&relation.CreatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return relation, nil
}

// SelectRelationsByDocument retrieves the relations of a document ordered
// by strength.
func (h *RelationsDBHandler) SelectRelationsByDocument(documentRID uuid.UUID) ([]*model.Relation, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_relations_by_document($1)`,
		documentRID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var relations []*model.Relation
	for rows.Next() {
		relation := &model.Relation{}
		err := rows.Scan(
			&relation.ID,
			&relation.DocumentRID,
			&relation.Character1,
			&relation.Character2,
			&relation.Type,
			&relation.Confidence,
			&relation.Strength,
			&relation.EvidenceCount,
			&relation.Cooccurrence,
			&relation.Metadata,
			&relation.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		relations = append(relations, relation)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return relations, nil
}

// SelectRelationsByCharacter retrieves the relations involving a character
func (h *RelationsDBHandler) SelectRelationsByCharacter(documentRID uuid.UUID, character string) ([]*model.Relation, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_relations_by_character($1, $2)`,
		documentRID,
		character,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var relations []*model.Relation
	for rows.Next() {
		relation := &model.Relation{}
		err := rows.Scan(
			&relation.ID,
			&relation.DocumentRID,
			&relation.Character1,
			&relation.Character2,
			&relation.Type,
			&relation.Confidence,
			&relation.Strength,
			&relation.EvidenceCount,
			&relation.Cooccurrence,
			&relation.Metadata,
			&relation.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		relations = append(relations, relation)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return relations, nil
}

// DeleteRelation deletes a relation by ID
func (h *RelationsDBHandler) DeleteRelation(id uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_relation($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// DeleteRelationsByDocument deletes all relations of a document
func (h *RelationsDBHandler) DeleteRelationsByDocument(documentRID uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_relations_by_document($1)`,
		documentRID,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
