package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/siherrmann/storygraph"
	"github.com/siherrmann/storygraph/model"
)

const sampleStory = `One dollar and eighty-seven cents. That was all. And sixty cents of it was in pennies.
Pennies saved one and two at a time by bulldozing the grocer and the vegetable man and the butcher.
Three times Della counted it. One dollar and eighty-seven cents. And the next day would be Christmas.

There was clearly nothing to do but flop down on the shabby little couch and howl. So Della did it.
Della finished her cry and attended to her cheeks with the powder rag.
She stood by the window and looked out dully at a gray cat walking a gray fence in a gray backyard.
Tomorrow would be Christmas Day, and she had only one dollar and eighty-seven cents with which to buy Jim a present.
She had been saving every penny she could for months, with this result.

Suddenly she whirled from the window and stood before the glass. Her eyes were shining brilliantly.
Rapidly she pulled down her hair and let it fall to its full length.
Now, there were two possessions of the James Dillingham Youngs in which they both took a mighty pride.
One was Jim's gold watch that had been his father's and his grandfather's. The other was Della's hair.

Where she stopped the sign read: Mme. Sofronie. Hair Goods of All Kinds.
Della ran up the flight of stairs and collected herself, panting.
Madame Sofronie, large, too white, chilly, hardly looked the Mme.
Will you buy my hair? asked Della. I buy hair, said Madame. Take yer hat off and let us have a sight at the looks of it.

At seven o'clock the coffee was made and Jim was never late.
Della doubled the fob chain in her hand and sat on the corner of the table near the door that he always entered.
Jim stopped inside the door, as immovable as a setter at the scent of quail. His eyes were fixed upon Della.
Jim drew a package from his overcoat pocket and threw it upon the table.
Della leaped up like a little singed cat and cried, Oh, oh!
Jim had not yet seen his beautiful present. For there lay The Combs, the set of combs that Della had worshipped.
And now they were hers, but the tresses that should have adorned the coveted adornments were gone.
Dell, said Jim, let us put our Christmas presents away and keep them a while. They are too nice to use just at present.
I sold the watch to get the money to buy your combs, said Jim. And now suppose you put the chops on.`

func main() {
	// Create the pipeline with default configuration, no database.
	s, err := storygraph.New(nil)
	if err != nil {
		log.Fatalf("Failed to create storygraph: %v", err)
	}

	doc := &model.Document{
		Title:   "The Gift of the Magi",
		Source:  "basic_example",
		Content: sampleStory,
		Metadata: model.Metadata{
			"author": "O. Henry",
			"year":   1905,
		},
	}

	fmt.Println("Extracting characters...")
	result, err := s.ProcessDocument(doc)
	if err != nil {
		log.Fatalf("Failed to process document: %v", err)
	}

	fmt.Printf("Processed %d sentences, found %d characters:\n\n",
		result.SentenceCount, len(result.Entities))

	for _, entity := range result.Entities {
		fmt.Printf("--- %s ---\n", entity.Name)
		fmt.Printf("Confidence: %.2f\n", entity.Confidence)
		fmt.Printf("Mentions:   %d\n", entity.Mentions)
		fmt.Printf("Methods:    %s\n", strings.Join(entity.DetectedBy, ", "))
		if profile, ok := result.Traits[entity.Name]; ok {
			fmt.Printf("Traits:     %s\n", strings.Join(profile.RawTraits, ", "))
		}
		fmt.Println()
	}

	if len(result.Relations) > 0 {
		fmt.Println("Relations:")
		for _, relation := range result.Relations {
			fmt.Printf("  %s - %s: %s (strength %.2f)\n",
				relation.Character1, relation.Character2, relation.Type, relation.Strength)
		}
	}

	fmt.Println("\nBasic example completed successfully!")
}
