package storygraph

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/siherrmann/storygraph/core/ensemble"
	"github.com/siherrmann/storygraph/core/extract"
	"github.com/siherrmann/storygraph/core/preprocess"
	"github.com/siherrmann/storygraph/core/relations"
	"github.com/siherrmann/storygraph/core/traits"
	"github.com/siherrmann/storygraph/database"
	"github.com/siherrmann/storygraph/helper"
	"github.com/siherrmann/storygraph/model"
	loadSql "github.com/siherrmann/storygraph/sql"
)

// StoryGraph runs the character extraction pipeline and provides access to
// the persistence handlers when a database is attached.
type StoryGraph struct {
	Config    *model.Config
	DB        *helper.Database
	Documents *database.DocumentsDBHandler
	Entities  *database.EntitiesDBHandler
	Relations *database.RelationsDBHandler
	// Logging
	log *slog.Logger

	extractors []extract.Extractor
	voter      *ensemble.Voter
	traits     *traits.Extractor
	relations  *relations.Extractor
}

// New creates a StoryGraph without persistence. A nil config uses the
// tuned defaults. Invalid configuration fails here, never mid-extraction.
func New(config *model.Config) (*StoryGraph, error) {
	if config == nil {
		config = model.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, helper.NewError("validate config", err)
	}

	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	s := &StoryGraph{
		Config:    config,
		log:       logger,
		voter:     ensemble.NewVoter(config.Ensemble, logger),
		traits:    traits.NewExtractor(logger),
		relations: relations.NewExtractor(config.ProximityWindow, logger),
	}
	s.SetEmbedder(nil)

	return s, nil
}

// NewWithDatabase creates a StoryGraph connected to Postgres, with all
// handlers initialized.
func NewWithDatabase(config *model.Config, dbConfig *helper.DatabaseConfiguration, embeddingDim int) (*StoryGraph, error) {
	s, err := New(config)
	if err != nil {
		return nil, err
	}

	// Initialize database
	db := helper.NewDatabase("storygraph", dbConfig, s.log)
	err = loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Create all handlers in the correct order (documents first)
	// force=false to not reload if functions already exist
	documents, err := database.NewDocumentsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create documents handler", err)
	}

	entities, err := database.NewEntitiesDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create entities handler", err)
	}

	relationsHandler, err := database.NewRelationsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create relations handler", err)
	}

	s.DB = db
	s.Documents = documents
	s.Entities = entities
	s.Relations = relationsHandler

	return s, nil
}

// Close closes the database connection
func (s *StoryGraph) Close() error {
	if s.DB != nil && s.DB.Instance != nil {
		return s.DB.Instance.Close()
	}
	return nil
}

// SetEmbedder rebuilds the extractor set with the given embedding function.
// A nil embedder keeps the embeddings method on its frequency fallback.
func (s *StoryGraph) SetEmbedder(embedder extract.EmbedFunc) {
	s.extractors = []extract.Extractor{
		extract.NewCapitalizationExtractor(s.Config.Capitalization, s.log),
		extract.NewStatisticalExtractor(s.Config.Statistical, s.log),
		extract.NewEmbeddingsExtractor(s.Config.Embeddings, embedder, nil, s.log),
	}
}

// UseDefaultExtractors wires the default embedding model into the
// embeddings method. If the model cannot be loaded the method stays on its
// frequency fallback, the pipeline remains usable.
func (s *StoryGraph) UseDefaultExtractors() error {
	embedder, err := extract.DefaultEmbedder(s.Config.Embeddings.ModelName)
	if err != nil {
		s.log.Warn("embedding model unavailable, using frequency fallback", "error", err)
		return nil
	}
	s.SetEmbedder(embedder)
	return nil
}

// ProcessDocument runs the full extraction pipeline on a document's
// content: preprocessing, the three extraction methods, ensemble voting,
// context attachment, trait profiles and relation detection.
func (s *StoryGraph) ProcessDocument(doc *model.Document) (*model.PipelineResult, error) {
	content := strings.TrimSpace(doc.Content)
	if len(content) < s.Config.MinDocumentLength {
		return nil, helper.NewError("process document", fmt.Errorf("document content too short: %d characters, need at least %d", len(content), s.Config.MinDocumentLength))
	}

	cleaned := preprocess.CleanText(content)
	sentences := preprocess.SegmentSentences(cleaned)
	index := preprocess.BuildCandidateIndex(sentences)

	s.log.Info("Preprocessed document", slog.String("title", doc.Title), slog.Int("sentences", len(sentences)))

	methodResults := make(map[string]*model.MethodResult)
	for _, extractor := range s.extractors {
		methodResults[extractor.Name()] = s.runMethod(extractor, index)
	}

	vote := s.voter.Vote(methodResults)
	attachContexts(vote.Entities, sentences)

	traitProfiles := s.traits.ExtractAll(vote.Entities)
	relationList, graph := s.relations.Extract(vote.Entities, sentences)

	return &model.PipelineResult{
		Title:         doc.Title,
		Source:        doc.Source,
		SentenceCount: len(sentences),
		Entities:      vote.Entities,
		Traits:        traitProfiles,
		Relations:     relationList,
		Graph:         graph,
		MethodResults: methodResults,
		Alignment:     vote.Alignment,
		Statistics:    vote.Statistics,
		ProcessedAt:   time.Now(),
	}, nil
}

// runMethod executes one extraction method. A method that errors or panics
// yields an empty result so the ensemble can still vote on the others.
func (s *StoryGraph) runMethod(extractor extract.Extractor, index *model.CandidateIndex) (result *model.MethodResult) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("extraction method panicked", "method", extractor.Name(), "panic", fmt.Sprint(r))
			result = model.EmptyMethodResult(extractor.Name())
		}
	}()

	result, err := extractor.Extract(index)
	if err != nil {
		s.log.Error("extraction method failed", "method", extractor.Name(), "error", err)
		return model.EmptyMethodResult(extractor.Name())
	}
	return result
}

// ProcessFile reads a text file and runs the pipeline on it.
func (s *StoryGraph) ProcessFile(path string) (*model.PipelineResult, error) {
	doc, err := model.NewDocumentFromFile(path)
	if err != nil {
		return nil, helper.NewError("read document", err)
	}
	return s.ProcessDocument(doc)
}

// ProcessBatch runs the pipeline over multiple files. A failing file is
// recorded in its batch item and does not stop the remaining files.
func (s *StoryGraph) ProcessBatch(paths []string) *model.BatchResult {
	batch := &model.BatchResult{}
	for _, path := range paths {
		item := &model.BatchItem{Source: path}

		result, err := s.ProcessFile(path)
		if err != nil {
			item.Error = err.Error()
			batch.Failed++
		} else {
			item.Result = result
			batch.Succeeded++
		}

		batch.Items = append(batch.Items, item)
	}

	s.log.Info("Processed batch", slog.Int("succeeded", batch.Succeeded), slog.Int("failed", batch.Failed))

	return batch
}

// SaveResult persists a processed document with its entities and
// relations. The document is inserted first so the entities and relations
// can reference its RID.
func (s *StoryGraph) SaveResult(doc *model.Document, result *model.PipelineResult) error {
	if s.DB == nil {
		return helper.NewError("save result", fmt.Errorf("no database attached, use NewWithDatabase"))
	}

	if err := s.Documents.InsertDocument(doc); err != nil {
		return helper.NewError("insert document", err)
	}

	for _, entity := range result.Entities {
		entity.DocumentRID = doc.RID
		if err := s.Entities.InsertEntity(entity); err != nil {
			return helper.NewError(fmt.Sprintf("insert entity %s", entity.Name), err)
		}
	}

	for _, relation := range result.Relations {
		relation.DocumentRID = doc.RID
		if err := s.Relations.InsertRelation(relation); err != nil {
			return helper.NewError(fmt.Sprintf("insert relation %s-%s", relation.Character1, relation.Character2), err)
		}
	}

	s.log.Info("Saved result",
		slog.String("document_id", doc.RID.String()),
		slog.Int("entities", len(result.Entities)),
		slog.Int("relations", len(result.Relations)),
	)

	return nil
}

// attachContexts collects, for every entity, the sentences mentioning its
// name or one of its variants.
func attachContexts(entities []*model.Entity, sentences []string) {
	for _, entity := range entities {
		pattern := mentionPattern(entity)
		for sentID, sentence := range sentences {
			if pattern.MatchString(sentence) {
				entity.Contexts = append(entity.Contexts, model.SentenceContext{
					SentenceID: sentID,
					Sentence:   sentence,
				})
			}
		}
	}
}

// mentionPattern matches the entity name or any variant as whole words. A
// first-person narrator is matched through standalone upper-case "I" only,
// the same token the narrator detection counts.
func mentionPattern(entity *model.Entity) *regexp.Regexp {
	names := append([]string{entity.Name}, entity.Variants...)

	var alternatives []string
	for _, name := range names {
		if strings.Contains(name, "Narrator") {
			alternatives = append(alternatives, `(?-i:I)`)
			continue
		}
		alternatives = append(alternatives, regexp.QuoteMeta(name))
	}

	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(alternatives, "|") + `)\b`)
}
