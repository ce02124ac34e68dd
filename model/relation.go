package model

import (
	"time"

	"github.com/google/uuid"
)

// RelationType classifies a detected inter-character relationship.
type RelationType string

const (
	RelationSpouse           RelationType = "spouse"
	RelationParentChild      RelationType = "parent-child"
	RelationSiblings         RelationType = "siblings"
	RelationExtendedFamily   RelationType = "extended-family"
	RelationLovers           RelationType = "lovers"
	RelationRomanticInterest RelationType = "romantic-interest"
	RelationCloseFriends     RelationType = "close-friends"
	RelationCompanions       RelationType = "companions"
	RelationEmployerEmployee RelationType = "employer-employee"
	RelationColleagues       RelationType = "colleagues"
	RelationCustomerMerchant RelationType = "customer-merchant"
	RelationEnemies          RelationType = "enemies"
	RelationRivals           RelationType = "rivals"
	RelationMasterServant    RelationType = "master-servant"
	RelationNeighbors        RelationType = "neighbors"
	RelationTeacherStudent   RelationType = "teacher-student"
	RelationCooccurrence     RelationType = "co-occurrence"
)

// RelationEvidence is one sentence supporting a detected relation.
type RelationEvidence struct {
	SentenceID int    `json:"sentence_id"`
	Sentence   string `json:"sentence"`
	Pattern    string `json:"pattern,omitempty"`
}

// Relation is a weighted edge between two characters.
type Relation struct {
	ID            uuid.UUID          `json:"id"`
	DocumentRID   uuid.UUID          `json:"document_rid,omitempty"`
	Character1    string             `json:"character1"`
	Character2    string             `json:"character2"`
	Type          RelationType       `json:"relation_type"`
	Confidence    float64            `json:"confidence"`
	Strength      float64            `json:"strength"`
	EvidenceCount int                `json:"evidence_count"`
	Cooccurrence  int                `json:"cooccurrence"`
	Evidence      []RelationEvidence `json:"evidence,omitempty"`
	Metadata      Metadata           `json:"metadata,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

// CharacterGraph is the adjacency view over the detected relations,
// keyed by character name.
type CharacterGraph struct {
	Characters []string               `json:"characters"`
	Adjacency  map[string][]*Relation `json:"adjacency"`
}

// Neighbors returns the characters directly related to the given one.
func (g *CharacterGraph) Neighbors(character string) []string {
	var neighbors []string
	for _, rel := range g.Adjacency[character] {
		other := rel.Character2
		if other == character {
			other = rel.Character1
		}
		neighbors = append(neighbors, other)
	}
	return neighbors
}
