package usecase

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"paperpulse/internal/domain"
)

// RankUsecase reduces a user's candidate pool to a fixed-size feed via
// cross-encoder reranking against the user's query profile.
type RankUsecase interface {
	Rank(ctx context.Context, user *domain.User, pool []domain.Paper, profile domain.QueryProfile, topN int) (int, error)
}

type rankUsecase struct {
	feedRepo domain.FeedRepository
	reranker domain.Reranker
	logger   *slog.Logger
}

// NewRankUsecase creates a new RankUsecase.
func NewRankUsecase(feedRepo domain.FeedRepository, reranker domain.Reranker, logger *slog.Logger) RankUsecase {
	return &rankUsecase{
		feedRepo: feedRepo,
		reranker: reranker,
		logger:   logger,
	}
}

// Rank inserts the top papers into the user's feed and returns how many
// items it attempted to insert. Pools at or below topN pass through
// unranked with reverse positional scores. A failing reranker degrades to
// original candidate order truncated to topN, never a failed run.
func (u *rankUsecase) Rank(ctx context.Context, user *domain.User, pool []domain.Paper, profile domain.QueryProfile, topN int) (int, error) {
	if len(pool) == 0 {
		return 0, nil
	}

	byID := make(map[string]*domain.Paper, len(pool))
	for i := range pool {
		byID[pool[i].CanonicalID] = &pool[i]
	}

	var ranked []domain.RerankResult
	if len(pool) <= topN {
		ranked = positionalScores(pool)
	} else {
		query := profile.RerankQuery(user.InterestText)
		candidates := make([]domain.RerankCandidate, len(pool))
		for i, p := range pool {
			candidates[i] = domain.RerankCandidate{
				ID:      p.CanonicalID,
				Content: p.Title + ". " + p.Abstract,
			}
		}

		results, err := u.reranker.Rerank(ctx, query, candidates, topN)
		if err != nil {
			u.logger.Warn("rerank_degraded_to_positional",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()))
			ranked = positionalScores(pool[:topN])
		} else {
			ranked = results
		}
	}

	inserted := 0
	for _, res := range ranked {
		paper, ok := byID[res.ID]
		if !ok {
			continue
		}
		item := domain.FeedItem{
			ID:             uuid.New(),
			UserID:         user.ID,
			PaperID:        paper.CanonicalID,
			RelevanceScore: float64(res.Score),
		}
		if err := u.feedRepo.Insert(ctx, item); err != nil {
			u.logger.Warn("feed_insert_failed",
				slog.String("user_id", user.ID),
				slog.String("paper_id", paper.CanonicalID),
				slog.String("error", err.Error()))
			continue
		}
		inserted++
	}

	u.logger.Info("feed_ranked",
		slog.String("user_id", user.ID),
		slog.Int("pool_size", len(pool)),
		slog.Int("feed_size", inserted))
	return inserted, nil
}

// positionalScores assigns reverse positional scores so earlier candidates
// rank higher, keeping original order stable.
func positionalScores(pool []domain.Paper) []domain.RerankResult {
	results := make([]domain.RerankResult, len(pool))
	for i, p := range pool {
		results[i] = domain.RerankResult{
			ID:    p.CanonicalID,
			Score: float32(len(pool)-i) / float32(len(pool)),
		}
	}
	return results
}
