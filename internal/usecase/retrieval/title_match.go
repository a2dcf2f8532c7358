package retrieval

import (
	"context"
	"log/slog"

	"paperpulse/internal/domain"
)

// TitleMatch finds papers in the user's feed whose titles share enough
// significant words with the question (Stage 1). This guards against
// vector search missing an explicitly named paper. Failures degrade to no
// matches; the vector stages still run.
func TitleMatch(
	ctx context.Context,
	sc *StageContext,
	feedRepo domain.FeedRepository,
	paperRepo domain.PaperRepository,
	cfg Config,
	logger *slog.Logger,
) {
	titles, err := feedRepo.Titles(ctx, sc.UserID)
	if err != nil {
		logger.Warn("title_match_feed_unavailable",
			slog.String("retrieval_id", sc.RetrievalID),
			slog.String("error", err.Error()))
		return
	}
	if len(titles) == 0 {
		return
	}

	matches := domain.MatchTitles(sc.Question, titles, cfg.TitleMatchKeep)
	for _, m := range matches {
		paper, err := paperRepo.GetByID(ctx, m.PaperID)
		if err != nil || paper == nil {
			continue
		}

		text := paper.FullText
		if text == "" {
			text = paper.Abstract
		}

		sc.TitleMatches = append(sc.TitleMatches, domain.ContextEntry{
			PaperID:   paper.CanonicalID,
			Title:     paper.Title,
			Abstract:  paper.Abstract,
			Summary:   paper.Summary,
			URL:       paper.URL,
			Text:      text,
			Score:     float32(m.Ratio),
			FromTitle: true,
		})
	}

	if len(sc.TitleMatches) > 0 {
		logger.Info("title_match_completed",
			slog.String("retrieval_id", sc.RetrievalID),
			slog.Int("match_count", len(sc.TitleMatches)))
	}
}
