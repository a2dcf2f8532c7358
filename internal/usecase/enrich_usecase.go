package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pgvector/pgvector-go"

	"paperpulse/internal/domain"
)

// EnrichResult reports what the enrichment stage did with one run's
// candidates.
type EnrichResult struct {
	Papers      []domain.Paper // persisted records for every surviving candidate, input order
	NewlyStored int
	Skipped     int
}

// EnrichUsecase turns deduplicated candidates into persisted papers:
// full-text extraction (best-effort), batched embedding, summarization,
// chunking, and optional graph mirroring. A paper already persisted is
// short-circuited to its stored record, never re-embedded or
// re-summarized.
type EnrichUsecase interface {
	Enrich(ctx context.Context, candidates []domain.CandidatePaper) (*EnrichResult, error)
}

type enrichUsecase struct {
	paperRepo domain.PaperRepository
	chunkRepo domain.ChunkRepository
	embedder  domain.Embedder
	llm       domain.CompletionClient
	extractor domain.FullTextExtractor
	chunker   domain.Chunker
	graph     domain.GraphStore      // nil when the graph is not configured
	citations domain.CitationFetcher // nil disables citation edges
	batchSize int
	logger    *slog.Logger
}

// NewEnrichUsecase creates a new EnrichUsecase.
func NewEnrichUsecase(
	paperRepo domain.PaperRepository,
	chunkRepo domain.ChunkRepository,
	embedder domain.Embedder,
	llm domain.CompletionClient,
	extractor domain.FullTextExtractor,
	chunker domain.Chunker,
	graph domain.GraphStore,
	citations domain.CitationFetcher,
	batchSize int,
	logger *slog.Logger,
) EnrichUsecase {
	if batchSize <= 0 {
		batchSize = 64
	}
	return &enrichUsecase{
		paperRepo: paperRepo,
		chunkRepo: chunkRepo,
		embedder:  embedder,
		llm:       llm,
		extractor: extractor,
		chunker:   chunker,
		graph:     graph,
		citations: citations,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (u *enrichUsecase) Enrich(ctx context.Context, candidates []domain.CandidatePaper) (*EnrichResult, error) {
	start := time.Now()
	result := &EnrichResult{}

	// Split existing papers from genuinely new ones first so already
	// persisted papers cost one query and no model calls.
	var fresh []domain.CandidatePaper
	existing := make(map[string]*domain.Paper)
	for _, cand := range candidates {
		stored, err := u.paperRepo.GetByID(ctx, cand.CanonicalID)
		if err != nil {
			return nil, fmt.Errorf("failed to check paper existence: %w", err)
		}
		if stored != nil {
			existing[cand.CanonicalID] = stored
			continue
		}
		fresh = append(fresh, cand)
	}

	u.logger.Info("enrichment_started",
		slog.Int("candidate_count", len(candidates)),
		slog.Int("already_persisted", len(existing)),
		slog.Int("new_count", len(fresh)))

	newlyStored := make(map[string]*domain.Paper)
	for batchStart := 0; batchStart < len(fresh); batchStart += u.batchSize {
		batchEnd := batchStart + u.batchSize
		if batchEnd > len(fresh) {
			batchEnd = len(fresh)
		}
		u.enrichBatch(ctx, fresh[batchStart:batchEnd], newlyStored)
	}

	for _, cand := range candidates {
		if p, ok := existing[cand.CanonicalID]; ok {
			result.Papers = append(result.Papers, *p)
		} else if p, ok := newlyStored[cand.CanonicalID]; ok {
			result.Papers = append(result.Papers, *p)
		} else {
			result.Skipped++
		}
	}
	result.NewlyStored = len(newlyStored)

	u.logger.Info("enrichment_completed",
		slog.Int("stored_count", result.NewlyStored),
		slog.Int("skipped_count", result.Skipped),
		slog.Duration("elapsed", time.Since(start)))
	return result, nil
}

// enrichBatch embeds one batch of new candidates and persists each paper
// individually. A failed batch embed skips the whole batch for this run;
// the papers were never persisted so the next run retries them.
func (u *enrichUsecase) enrichBatch(ctx context.Context, batch []domain.CandidatePaper, stored map[string]*domain.Paper) {
	texts := make([]string, len(batch))
	for i, cand := range batch {
		texts[i] = cand.Title + "\n\n" + cand.Abstract
	}

	vectors, err := u.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		u.logger.Warn("embedding_batch_failed",
			slog.Int("batch_size", len(batch)),
			slog.String("error", err.Error()))
		return
	}

	var forGraph []domain.Paper
	for i, cand := range batch {
		if len(vectors[i]) == 0 {
			u.logger.Warn("paper_skipped_empty_embedding", slog.String("paper_id", cand.CanonicalID))
			continue
		}

		summary, _ := u.llm.SummarizeAbstract(ctx, cand.Abstract)

		fullText := ""
		if u.extractor != nil {
			if text, err := u.extractor.Extract(ctx, cand); err == nil {
				fullText = text
			}
		}

		paper := &domain.Paper{
			CanonicalID:   cand.CanonicalID,
			Title:         cand.Title,
			Authors:       cand.Authors,
			PublishedDate: cand.PublishedDate,
			Abstract:      cand.Abstract,
			Summary:       summary,
			URL:           cand.URL,
			Source:        cand.Source,
			DOI:           cand.DOI,
			FullText:      fullText,
			Embedding:     pgvector.NewVector(vectors[i]),
		}

		if err := u.paperRepo.Insert(ctx, paper); err != nil {
			u.logger.Warn("paper_insert_failed",
				slog.String("paper_id", cand.CanonicalID),
				slog.String("error", err.Error()))
			continue
		}
		stored[cand.CanonicalID] = paper
		forGraph = append(forGraph, *paper)

		if fullText != "" {
			u.storeChunks(ctx, paper)
		}
	}

	u.mirrorToGraph(ctx, forGraph)
}

// storeChunks splits the paper's full text, embeds the chunks and bulk
// inserts them. Chunk failures never fail the paper.
func (u *enrichUsecase) storeChunks(ctx context.Context, paper *domain.Paper) {
	chunks := u.chunker.Chunk(paper.FullText, paper.CanonicalID, paper.Title)
	if len(chunks) == 0 {
		return
	}

	for batchStart := 0; batchStart < len(chunks); batchStart += u.batchSize {
		batchEnd := batchStart + u.batchSize
		if batchEnd > len(chunks) {
			batchEnd = len(chunks)
		}
		batch := chunks[batchStart:batchEnd]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.ChunkText
		}
		vectors, err := u.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			u.logger.Warn("chunk_embedding_failed",
				slog.String("paper_id", paper.CanonicalID),
				slog.String("error", err.Error()))
			return
		}
		for i := range batch {
			batch[i].Embedding = pgvector.NewVector(vectors[i])
		}
	}

	if err := u.chunkRepo.BulkInsert(ctx, chunks); err != nil {
		u.logger.Warn("chunk_insert_failed",
			slog.String("paper_id", paper.CanonicalID),
			slog.String("error", err.Error()))
		return
	}

	u.logger.Info("chunks_stored",
		slog.String("paper_id", paper.CanonicalID),
		slog.Int("chunk_count", len(chunks)))
}

// mirrorToGraph pushes papers, their extracted concepts and their
// citation edges into the graph store. Strictly best-effort.
func (u *enrichUsecase) mirrorToGraph(ctx context.Context, papers []domain.Paper) {
	if u.graph == nil || len(papers) == 0 {
		return
	}

	if err := u.graph.UpsertPapers(ctx, papers); err != nil {
		u.logger.Warn("graph_upsert_failed", slog.String("error", err.Error()))
		return
	}

	for _, p := range papers {
		entities, err := u.llm.ExtractEntities(ctx, p.Title, p.Abstract)
		if err == nil && len(entities.Concepts) > 0 {
			if err := u.graph.UpsertConcepts(ctx, p.CanonicalID, entities.Concepts); err != nil {
				u.logger.Warn("graph_concept_upsert_failed",
					slog.String("paper_id", p.CanonicalID),
					slog.String("error", err.Error()))
			}
		}

		u.mirrorCitations(ctx, p)
	}
}

// mirrorCitations resolves and records CITES edges for one paper.
func (u *enrichUsecase) mirrorCitations(ctx context.Context, paper domain.Paper) {
	if u.citations == nil {
		return
	}

	links, err := u.citations.FetchCitations(ctx, paper)
	if err != nil {
		u.logger.Warn("citation_fetch_failed",
			slog.String("paper_id", paper.CanonicalID),
			slog.String("error", err.Error()))
		return
	}
	if links.Empty() {
		return
	}

	if err := u.graph.UpsertCitations(ctx, paper.CanonicalID, links); err != nil {
		u.logger.Warn("graph_citation_upsert_failed",
			slog.String("paper_id", paper.CanonicalID),
			slog.String("error", err.Error()))
	}
}
