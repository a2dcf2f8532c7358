package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"paperpulse/internal/domain"
)

// ChunkSearch runs vector search over the user's chunks and assembles one
// context entry per parent paper from its best chunks (Stage 2). A failed
// or empty search leaves ChunkEntries empty so the paper-level fallback
// takes over.
func ChunkSearch(
	ctx context.Context,
	sc *StageContext,
	chunkRepo domain.ChunkRepository,
	reranker domain.Reranker,
	cfg Config,
	logger *slog.Logger,
) {
	if len(sc.QuestionEmbedding) == 0 {
		return
	}

	results, err := chunkRepo.SearchByEmbedding(ctx, sc.UserID, sc.QuestionEmbedding, cfg.ChunkCandidates)
	if err != nil {
		logger.Warn("chunk_search_failed",
			slog.String("retrieval_id", sc.RetrievalID),
			slog.String("error", err.Error()))
		return
	}
	if len(results) == 0 {
		return
	}

	kept := rerankChunks(ctx, sc, results, reranker, cfg, logger)
	sc.ChunkEntries = groupChunksByPaper(kept)

	logger.Info("chunk_search_completed",
		slog.String("retrieval_id", sc.RetrievalID),
		slog.Int("candidate_count", len(results)),
		slog.Int("kept_count", len(kept)),
		slog.Int("paper_count", len(sc.ChunkEntries)))
}

// rerankChunks keeps the top chunks by cross-encoder score, or by original
// similarity order when the reranker is unavailable.
func rerankChunks(
	ctx context.Context,
	sc *StageContext,
	results []domain.ChunkSearchResult,
	reranker domain.Reranker,
	cfg Config,
	logger *slog.Logger,
) []domain.ChunkSearchResult {
	candidates := make([]domain.RerankCandidate, len(results))
	byKey := make(map[string]domain.ChunkSearchResult, len(results))
	for i, res := range results {
		key := chunkKey(res)
		candidates[i] = domain.RerankCandidate{ID: key, Content: res.Chunk.ChunkText}
		byKey[key] = res
	}

	rerankCtx, cancel := context.WithTimeout(ctx, cfg.RerankTimeout)
	defer cancel()

	ranked, err := reranker.Rerank(rerankCtx, sc.Question, candidates, cfg.ChunkKeep)
	if err != nil {
		logger.Warn("chunk_rerank_degraded",
			slog.String("retrieval_id", sc.RetrievalID),
			slog.String("error", err.Error()))
		if len(results) > cfg.ChunkKeep {
			return results[:cfg.ChunkKeep]
		}
		return results
	}

	kept := make([]domain.ChunkSearchResult, 0, len(ranked))
	for _, r := range ranked {
		res, ok := byKey[r.ID]
		if !ok {
			continue
		}
		res.Score = r.Score
		kept = append(kept, res)
	}
	return kept
}

// groupChunksByPaper synthesizes a pseudo-full-text per paper from its
// retained chunks, ordered by chunk index. Entries are ordered by their
// best chunk's score.
func groupChunksByPaper(kept []domain.ChunkSearchResult) []domain.ContextEntry {
	type paperChunks struct {
		title  string
		url    string
		best   float32
		chunks []domain.ChunkSearchResult
	}

	grouped := make(map[string]*paperChunks)
	var order []string
	for _, res := range kept {
		pc, ok := grouped[res.Chunk.PaperID]
		if !ok {
			pc = &paperChunks{title: res.Title, url: res.URL}
			grouped[res.Chunk.PaperID] = pc
			order = append(order, res.Chunk.PaperID)
		}
		if res.Score > pc.best {
			pc.best = res.Score
		}
		pc.chunks = append(pc.chunks, res)
	}

	entries := make([]domain.ContextEntry, 0, len(grouped))
	for _, paperID := range order {
		pc := grouped[paperID]
		sort.Slice(pc.chunks, func(i, j int) bool {
			return pc.chunks[i].Chunk.ChunkIndex < pc.chunks[j].Chunk.ChunkIndex
		})

		text := ""
		for i, c := range pc.chunks {
			if i > 0 {
				text += "\n\n"
			}
			text += c.Chunk.ChunkText
		}

		entries = append(entries, domain.ContextEntry{
			PaperID: paperID,
			Title:   pc.title,
			URL:     pc.url,
			Text:    text,
			Score:   pc.best,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	return entries
}

func chunkKey(res domain.ChunkSearchResult) string {
	return fmt.Sprintf("%s#%d", res.Chunk.PaperID, res.Chunk.ChunkIndex)
}
