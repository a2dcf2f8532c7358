package retrieval

import (
	"context"
	"log/slog"

	"paperpulse/internal/domain"
)

// PaperFallback runs vector search over whole-paper embeddings (Stage 3).
// It only runs when the chunk pass produced nothing, covering feeds whose
// papers have no extracted full text yet.
func PaperFallback(
	ctx context.Context,
	sc *StageContext,
	paperRepo domain.PaperRepository,
	reranker domain.Reranker,
	cfg Config,
	logger *slog.Logger,
) {
	if len(sc.ChunkEntries) > 0 || len(sc.QuestionEmbedding) == 0 {
		return
	}

	results, err := paperRepo.SearchByEmbedding(ctx, sc.UserID, sc.QuestionEmbedding, cfg.PaperCandidates)
	if err != nil {
		logger.Warn("paper_fallback_failed",
			slog.String("retrieval_id", sc.RetrievalID),
			slog.String("error", err.Error()))
		return
	}
	if len(results) == 0 {
		return
	}

	byID := make(map[string]domain.PaperSearchResult, len(results))
	candidates := make([]domain.RerankCandidate, len(results))
	for i, res := range results {
		byID[res.Paper.CanonicalID] = res
		candidates[i] = domain.RerankCandidate{
			ID:      res.Paper.CanonicalID,
			Content: res.Paper.Title + ". " + res.Paper.Abstract,
		}
	}

	rerankCtx, cancel := context.WithTimeout(ctx, cfg.RerankTimeout)
	defer cancel()

	ranked, err := reranker.Rerank(rerankCtx, sc.Question, candidates, cfg.PaperKeep)
	if err != nil {
		logger.Warn("paper_rerank_degraded",
			slog.String("retrieval_id", sc.RetrievalID),
			slog.String("error", err.Error()))
		if len(results) > cfg.PaperKeep {
			results = results[:cfg.PaperKeep]
		}
		ranked = make([]domain.RerankResult, len(results))
		for i, res := range results {
			ranked[i] = domain.RerankResult{ID: res.Paper.CanonicalID, Score: res.Score}
		}
	}

	for _, r := range ranked {
		res, ok := byID[r.ID]
		if !ok {
			continue
		}
		p := res.Paper

		text := p.FullText
		if text == "" {
			text = p.Abstract
		}

		sc.PaperEntries = append(sc.PaperEntries, domain.ContextEntry{
			PaperID:  p.CanonicalID,
			Title:    p.Title,
			Abstract: p.Abstract,
			Summary:  p.Summary,
			URL:      p.URL,
			Text:     text,
			Score:    r.Score,
		})
	}

	logger.Info("paper_fallback_completed",
		slog.String("retrieval_id", sc.RetrievalID),
		slog.Int("candidate_count", len(results)),
		slog.Int("kept_count", len(sc.PaperEntries)))
}
