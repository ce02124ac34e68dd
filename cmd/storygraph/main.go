package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/siherrmann/storygraph"
	"github.com/siherrmann/storygraph/helper"
	"github.com/siherrmann/storygraph/model"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "storygraph",
		Short: "Unsupervised character extraction for literary texts",
		Long: `Storygraph extracts story characters from plain text without any
training data or annotation.

Three independent methods (capitalization consistency, TF-ISF term
ranking and embedding clustering) each propose candidates; an ensemble
voter reconciles them into a final character list with confidence
scores, trait profiles and a relationship graph.`,
		Version: version,
	}

	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(batchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract characters from a single text file",
		Long: `Extract characters from a single text file and print a summary.

Example:
  storygraph extract --source story.txt
  storygraph extract --source story.txt --output result.json --embed
  storygraph extract --source story.txt --save --embedding-dim 384`,
		RunE: func(cmd *cobra.Command, args []string) error {
			source, _ := cmd.Flags().GetString("source")
			configPath, _ := cmd.Flags().GetString("config")
			output, _ := cmd.Flags().GetString("output")
			embed, _ := cmd.Flags().GetBool("embed")
			save, _ := cmd.Flags().GetBool("save")
			embeddingDim, _ := cmd.Flags().GetInt("embedding-dim")

			if source == "" {
				return fmt.Errorf("--source flag is required")
			}
			if _, err := os.Stat(source); os.IsNotExist(err) {
				return fmt.Errorf("source file not found: %s", source)
			}

			s, err := newStoryGraph(configPath, save, embeddingDim)
			if err != nil {
				return err
			}
			defer s.Close()

			if embed {
				if err := s.UseDefaultExtractors(); err != nil {
					return fmt.Errorf("failed to load embedding model: %w", err)
				}
			}

			fmt.Printf("Extracting characters from: %s\n", source)
			start := time.Now()

			doc, err := model.NewDocumentFromFile(source)
			if err != nil {
				return err
			}
			result, err := s.ProcessDocument(doc)
			if err != nil {
				return err
			}

			printSummary(result, time.Since(start))

			if save {
				if err := s.SaveResult(doc, result); err != nil {
					return fmt.Errorf("failed to save result: %w", err)
				}
				fmt.Printf("Saved document %s with %d entities and %d relations\n",
					doc.RID, len(result.Entities), len(result.Relations))
			}
			if output != "" {
				if err := result.WriteJSON(output); err != nil {
					return fmt.Errorf("failed to write output: %w", err)
				}
				fmt.Printf("Wrote result to: %s\n", output)
			}
			return nil
		},
	}

	cmd.Flags().String("source", "", "Path to the text file (required)")
	cmd.Flags().String("config", "", "Path to a YAML configuration file")
	cmd.Flags().String("output", "", "Write the full result as JSON to this path")
	cmd.Flags().Bool("embed", false, "Use the sentence transformer embedding model")
	cmd.Flags().Bool("save", false, "Persist the result to the configured database")
	cmd.Flags().Int("embedding-dim", 384, "Embedding dimension of the entities table")

	return cmd
}

func batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [files...]",
		Short: "Extract characters from multiple text files",
		Long: `Extract characters from multiple text files. A failing file is
reported and does not stop the remaining files.

Example:
  storygraph batch stories/*.txt --output-dir results/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			outputDir, _ := cmd.Flags().GetString("output-dir")
			embed, _ := cmd.Flags().GetBool("embed")

			s, err := newStoryGraph(configPath, false, 0)
			if err != nil {
				return err
			}
			if embed {
				if err := s.UseDefaultExtractors(); err != nil {
					return fmt.Errorf("failed to load embedding model: %w", err)
				}
			}

			start := time.Now()
			batch := s.ProcessBatch(args)

			for _, item := range batch.Items {
				if item.Failed() {
					fmt.Printf("  FAIL %s: %s\n", item.Source, item.Error)
					continue
				}
				fmt.Printf("  ok   %s: %d characters, %d relations\n",
					item.Source, len(item.Result.Entities), len(item.Result.Relations))

				if outputDir != "" {
					name := strings.TrimSuffix(filepath.Base(item.Source), filepath.Ext(item.Source))
					path := filepath.Join(outputDir, name+".json")
					if err := item.Result.WriteJSON(path); err != nil {
						return fmt.Errorf("failed to write %s: %w", path, err)
					}
				}
			}

			fmt.Printf("Processed %d files in %s (%d succeeded, %d failed)\n",
				len(batch.Items), time.Since(start).Round(time.Millisecond), batch.Succeeded, batch.Failed)
			if batch.Failed > 0 {
				return fmt.Errorf("%d of %d files failed", batch.Failed, len(batch.Items))
			}
			return nil
		},
	}

	cmd.Flags().String("config", "", "Path to a YAML configuration file")
	cmd.Flags().String("output-dir", "", "Write one JSON result per file into this directory")
	cmd.Flags().Bool("embed", false, "Use the sentence transformer embedding model")

	return cmd
}

// newStoryGraph builds the pipeline from an optional config file, with or
// without a database connection. The database configuration comes from the
// environment.
func newStoryGraph(configPath string, withDatabase bool, embeddingDim int) (*storygraph.StoryGraph, error) {
	var config *model.Config
	if configPath != "" {
		loaded, err := model.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		config = loaded
	}

	if !withDatabase {
		return storygraph.New(config)
	}

	dbConfig, err := helper.NewDatabaseConfiguration()
	if err != nil {
		return nil, fmt.Errorf("failed to read database configuration: %w", err)
	}
	return storygraph.NewWithDatabase(config, dbConfig, embeddingDim)
}

func printSummary(result *model.PipelineResult, elapsed time.Duration) {
	fmt.Printf("Processed %d sentences in %s\n", result.SentenceCount, elapsed.Round(time.Millisecond))
	fmt.Printf("Found %d characters (average confidence %.2f)\n\n",
		result.Statistics.TotalEntities, result.Statistics.AverageConfidence)

	for _, entity := range result.Entities {
		fmt.Printf("  %-30s confidence %.2f, %d mentions, methods: %s\n",
			entity.Name, entity.Confidence, entity.Mentions, strings.Join(entity.DetectedBy, ", "))
		if profile, ok := result.Traits[entity.Name]; ok && len(profile.RawTraits) > 0 {
			fmt.Printf("  %-30s traits: %s\n", "", strings.Join(profile.RawTraits, ", "))
		}
	}

	if len(result.Relations) > 0 {
		fmt.Printf("\nRelations:\n")
		for _, relation := range result.Relations {
			fmt.Printf("  %s - %s: %s (confidence %.2f, strength %.2f)\n",
				relation.Character1, relation.Character2, relation.Type,
				relation.Confidence, relation.Strength)
		}
	}
}
