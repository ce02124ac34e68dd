package main

import (
	"context"
	"fmt"
	"log"

	"github.com/siherrmann/storygraph"
	"github.com/siherrmann/storygraph/helper"
	"github.com/siherrmann/storygraph/model"
)

const storyOne = `Maria Lopez kept the bakery at the end of the lane. Every morning Maria Lopez fired the ovens before sunrise.
The neighbors said Maria Lopez was generous and patient. By noon Maria Lopez had sold every loaf on the shelf.
Each week Maria Lopez carried bread across the square to the church. The children followed Maria Lopez for the warm rolls she saved them.
One winter the merchant came with flour from the south. She bought three sacks from the merchant at a fair price.
The merchant praised her bread and asked for a loaf in return. Later the merchant told every town about the bakery on the lane.
Maria Lopez waved from the doorway as his cart rolled away. Everyone in the town said Maria Lopez was kind.`

const storyTwo = `Elena Vasquez mapped the coast from her small boat. Every summer Elena Vasquez charted the reefs beyond the bay.
The fishermen trusted Elena Vasquez with their routes. At dusk Elena Vasquez drew the soundings into her ledger.
One evening the captain brought charts from a wrecked brig. She traded two maps with the captain for the salvaged pages.
The captain thanked her and sailed north before the storm. Everyone in the harbor said Elena Vasquez was brave.`

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration using the container port
	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	s, err := storygraph.NewWithDatabase(nil, dbConfig, 384)
	if err != nil {
		log.Fatalf("Failed to create storygraph: %v", err)
	}
	defer s.Close()

	// Wire the sentence transformer model into the embeddings method. The
	// pipeline still runs on the frequency fallback if the model is missing.
	if err := s.UseDefaultExtractors(); err != nil {
		log.Fatalf("Failed to set up extractors: %v", err)
	}

	documents := []*model.Document{
		{
			Title:    "The Bakery on the Lane",
			Source:   "advanced_example",
			Content:  storyOne,
			Metadata: model.Metadata{"collection": "town tales"},
		},
		{
			Title:    "Charts of the Bay",
			Source:   "advanced_example",
			Content:  storyTwo,
			Metadata: model.Metadata{"collection": "coast tales"},
		},
	}

	for _, doc := range documents {
		fmt.Printf("Processing: %s\n", doc.Title)
		result, err := s.ProcessDocument(doc)
		if err != nil {
			log.Fatalf("Failed to process document: %v", err)
		}

		if err := s.SaveResult(doc, result); err != nil {
			log.Fatalf("Failed to save result: %v", err)
		}
		fmt.Printf("  saved %d characters and %d relations under %s\n",
			len(result.Entities), len(result.Relations), doc.RID)
	}

	// Search characters by name fragment across all documents.
	fmt.Println("\nSearching for characters matching 'lopez':")
	matches, err := s.Entities.SelectEntitiesBySearch("lopez", 5)
	if err != nil {
		log.Fatalf("Failed to search entities: %v", err)
	}
	for _, entity := range matches {
		fmt.Printf("  %s (confidence %.2f, document %s)\n",
			entity.Name, entity.Confidence, entity.DocumentRID)
	}

	// Look up the relations of the first document's main character.
	fmt.Println("\nRelations in the first document:")
	relations, err := s.Relations.SelectRelationsByDocument(documents[0].RID)
	if err != nil {
		log.Fatalf("Failed to select relations: %v", err)
	}
	for _, relation := range relations {
		fmt.Printf("  %s - %s: %s (confidence %.2f)\n",
			relation.Character1, relation.Character2, relation.Type, relation.Confidence)
	}

	fmt.Println("\nAdvanced example completed successfully!")
}
