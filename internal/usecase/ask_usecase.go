package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"paperpulse/internal/domain"
	"paperpulse/internal/usecase/retrieval"
)

// NoCorpusMessage is returned when retrieval finds nothing to ground an
// answer on. An explicit condition, not an error.
const NoCorpusMessage = "I don't have any papers in your feed yet that can answer this. " +
	"Run the pipeline or broaden your interests, then ask again."

// AskInput is one question against a user's corpus.
type AskInput struct {
	UserID   string
	Question string
	History  []domain.ChatTurn
}

// AskResult is the outcome of one question.
type AskResult struct {
	Answer domain.Answer
	Intent domain.Intent
	Empty  bool // true when the question needed papers but none matched
}

// AskUsecase answers questions over a user's personalized corpus via
// hybrid retrieval. Repeated identical questions are served from a
// short-lived cache.
type AskUsecase interface {
	Execute(ctx context.Context, input AskInput) (*AskResult, error)
}

type askUsecase struct {
	feedRepo  domain.FeedRepository
	paperRepo domain.PaperRepository
	chunkRepo domain.ChunkRepository
	embedder  domain.Embedder
	reranker  domain.Reranker
	llm       domain.CompletionClient
	graph     domain.GraphStore // nil when the graph is not configured
	cfg       retrieval.Config
	cache     *expirable.LRU[string, domain.Answer]
	logger    *slog.Logger
}

// NewAskUsecase creates a new AskUsecase.
func NewAskUsecase(
	feedRepo domain.FeedRepository,
	paperRepo domain.PaperRepository,
	chunkRepo domain.ChunkRepository,
	embedder domain.Embedder,
	reranker domain.Reranker,
	llm domain.CompletionClient,
	graph domain.GraphStore,
	cfg retrieval.Config,
	cacheSize int,
	cacheTTL time.Duration,
	logger *slog.Logger,
) AskUsecase {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	if cacheTTL <= 0 {
		cacheTTL = 15 * time.Minute
	}
	return &askUsecase{
		feedRepo:  feedRepo,
		paperRepo: paperRepo,
		chunkRepo: chunkRepo,
		embedder:  embedder,
		reranker:  reranker,
		llm:       llm,
		graph:     graph,
		cfg:       cfg,
		cache:     expirable.NewLRU[string, domain.Answer](cacheSize, nil, cacheTTL),
		logger:    logger,
	}
}

func (u *askUsecase) Execute(ctx context.Context, input AskInput) (*AskResult, error) {
	if input.Question == "" {
		return nil, fmt.Errorf("question is empty")
	}

	start := time.Now()
	retrievalID := uuid.NewString()

	intent, _ := u.llm.ClassifyIntent(ctx, input.Question, input.History)
	if intent != domain.IntentPaperQuestion {
		// Chit-chat and follow-ups skip retrieval entirely.
		answer, err := u.llm.AnswerQuestion(ctx, input.Question, &domain.RetrievalContext{}, input.History)
		if err != nil {
			return nil, fmt.Errorf("failed to generate answer: %w", err)
		}
		return &AskResult{Answer: answer, Intent: intent}, nil
	}

	cacheKey := answerCacheKey(input.UserID, input.Question)
	if cached, ok := u.cache.Get(cacheKey); ok {
		u.logger.Info("answer_cache_hit", slog.String("retrieval_id", retrievalID))
		return &AskResult{Answer: cached, Intent: intent}, nil
	}

	sc := &retrieval.StageContext{
		RetrievalID: retrievalID,
		UserID:      input.UserID,
		Question:    input.Question,
	}
	if vec, err := u.embedder.EmbedOne(ctx, input.Question); err == nil {
		sc.QuestionEmbedding = vec
	} else {
		u.logger.Warn("question_embedding_failed",
			slog.String("retrieval_id", retrievalID),
			slog.String("error", err.Error()))
	}

	retrieval.TitleMatch(ctx, sc, u.feedRepo, u.paperRepo, u.cfg, u.logger)
	retrieval.ChunkSearch(ctx, sc, u.chunkRepo, u.reranker, u.cfg, u.logger)
	retrieval.PaperFallback(ctx, sc, u.paperRepo, u.reranker, u.cfg, u.logger)
	retrieval.Merge(sc)

	if len(sc.Merged) == 0 {
		u.logger.Info("retrieval_empty",
			slog.String("retrieval_id", retrievalID),
			slog.Duration("elapsed", time.Since(start)))
		return &AskResult{
			Answer: domain.Answer{Text: NoCorpusMessage},
			Intent: intent,
			Empty:  true,
		}, nil
	}

	rc := &domain.RetrievalContext{Entries: sc.Merged}
	rc.GraphContext = u.graphContext(ctx, sc.Merged)

	answer, err := u.llm.AnswerQuestion(ctx, input.Question, rc, input.History)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}
	u.cache.Add(cacheKey, answer)

	u.logger.Info("question_answered",
		slog.String("retrieval_id", retrievalID),
		slog.Int("context_entry_count", len(sc.Merged)),
		slog.Bool("via_title_match", len(sc.TitleMatches) > 0),
		slog.Bool("via_paper_fallback", len(sc.PaperEntries) > 0),
		slog.Duration("elapsed", time.Since(start)))
	return &AskResult{Answer: answer, Intent: intent}, nil
}

func (u *askUsecase) graphContext(ctx context.Context, entries []domain.ContextEntry) string {
	if u.graph == nil || len(entries) < 2 {
		return ""
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.PaperID
	}
	text, err := u.graph.ContextForPapers(ctx, ids)
	if err != nil {
		u.logger.Warn("graph_context_unavailable", slog.String("error", err.Error()))
		return ""
	}
	return text
}

func answerCacheKey(userID, question string) string {
	sum := sha256.Sum256([]byte(userID + "\x00" + question))
	return hex.EncodeToString(sum[:])
}
