package retrieval_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"paperpulse/internal/domain"
	"paperpulse/internal/usecase/retrieval"
)

// MockPaperRepository
type MockPaperRepository struct {
	mock.Mock
}

func (m *MockPaperRepository) GetByID(ctx context.Context, canonicalID string) (*domain.Paper, error) {
	args := m.Called(ctx, canonicalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Paper), args.Error(1)
}

func (m *MockPaperRepository) Insert(ctx context.Context, paper *domain.Paper) error {
	args := m.Called(ctx, paper)
	return args.Error(0)
}

func (m *MockPaperRepository) SearchByEmbedding(ctx context.Context, userID string, query []float32, limit int) ([]domain.PaperSearchResult, error) {
	args := m.Called(ctx, userID, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PaperSearchResult), args.Error(1)
}

// MockChunkRepository
type MockChunkRepository struct {
	mock.Mock
}

func (m *MockChunkRepository) BulkInsert(ctx context.Context, chunks []domain.PaperChunk) error {
	args := m.Called(ctx, chunks)
	return args.Error(0)
}

func (m *MockChunkRepository) SearchByEmbedding(ctx context.Context, userID string, query []float32, limit int) ([]domain.ChunkSearchResult, error) {
	args := m.Called(ctx, userID, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ChunkSearchResult), args.Error(1)
}

// MockFeedRepository
type MockFeedRepository struct {
	mock.Mock
}

func (m *MockFeedRepository) Insert(ctx context.Context, item domain.FeedItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockFeedRepository) ListForUser(ctx context.Context, userID string, limit int) ([]domain.FeedEntry, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FeedEntry), args.Error(1)
}

func (m *MockFeedRepository) Titles(ctx context.Context, userID string) (map[string]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockFeedRepository) SetSaved(ctx context.Context, itemID uuid.UUID, saved bool) error {
	args := m.Called(ctx, itemID, saved)
	return args.Error(0)
}

// MockReranker
type MockReranker struct {
	mock.Mock
}

func (m *MockReranker) Rerank(ctx context.Context, query string, candidates []domain.RerankCandidate, topN int) ([]domain.RerankResult, error) {
	args := m.Called(ctx, query, candidates, topN)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RerankResult), args.Error(1)
}

func (m *MockReranker) ModelName() string {
	return "mock-reranker"
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newStageContext() *retrieval.StageContext {
	return &retrieval.StageContext{
		RetrievalID:       "test-retrieval",
		UserID:            "user-1",
		Question:          "How does the paper Attention Is All You Need compute self attention?",
		QuestionEmbedding: []float32{0.1, 0.2, 0.3},
	}
}

func TestTitleMatch_FindsExplicitlyNamedPaper(t *testing.T) {
	feedRepo := new(MockFeedRepository)
	paperRepo := new(MockPaperRepository)
	sc := newStageContext()
	cfg := retrieval.DefaultConfig()
	ctx := context.Background()

	feedRepo.On("Titles", ctx, "user-1").Return(map[string]string{
		"1706.03762": "Attention Is All You Need",
		"1810.04805": "BERT: Pre-training of Deep Bidirectional Transformers",
	}, nil)
	paperRepo.On("GetByID", ctx, "1706.03762").Return(&domain.Paper{
		CanonicalID: "1706.03762",
		Title:       "Attention Is All You Need",
		Abstract:    "The dominant sequence transduction models...",
		FullText:    "full body",
	}, nil)

	retrieval.TitleMatch(ctx, sc, feedRepo, paperRepo, cfg, testLogger())

	assert.Len(t, sc.TitleMatches, 1)
	assert.Equal(t, "1706.03762", sc.TitleMatches[0].PaperID)
	assert.True(t, sc.TitleMatches[0].FromTitle)
	assert.Equal(t, "full body", sc.TitleMatches[0].Text)
}

func TestTitleMatch_FeedFailureDegradesToNoMatches(t *testing.T) {
	feedRepo := new(MockFeedRepository)
	paperRepo := new(MockPaperRepository)
	sc := newStageContext()
	ctx := context.Background()

	feedRepo.On("Titles", ctx, "user-1").Return(nil, errors.New("connection refused"))

	retrieval.TitleMatch(ctx, sc, feedRepo, paperRepo, retrieval.DefaultConfig(), testLogger())

	assert.Empty(t, sc.TitleMatches)
}

func TestChunkSearch_GroupsChunksByPaperInIndexOrder(t *testing.T) {
	chunkRepo := new(MockChunkRepository)
	reranker := new(MockReranker)
	sc := newStageContext()
	cfg := retrieval.DefaultConfig()
	ctx := context.Background()

	results := []domain.ChunkSearchResult{
		{Chunk: domain.PaperChunk{PaperID: "p1", ChunkIndex: 4, ChunkText: "later passage"}, Score: 0.7, Title: "Paper One"},
		{Chunk: domain.PaperChunk{PaperID: "p1", ChunkIndex: 1, ChunkText: "earlier passage"}, Score: 0.6, Title: "Paper One"},
		{Chunk: domain.PaperChunk{PaperID: "p2", ChunkIndex: 0, ChunkText: "other paper"}, Score: 0.5, Title: "Paper Two"},
	}
	chunkRepo.On("SearchByEmbedding", ctx, "user-1", sc.QuestionEmbedding, cfg.ChunkCandidates).
		Return(results, nil)
	reranker.On("Rerank", mock.Anything, sc.Question, mock.Anything, cfg.ChunkKeep).
		Return([]domain.RerankResult{
			{ID: "p1#4", Score: 0.95},
			{ID: "p2#0", Score: 0.80},
			{ID: "p1#1", Score: 0.75},
		}, nil)

	retrieval.ChunkSearch(ctx, sc, chunkRepo, reranker, cfg, testLogger())

	assert.Len(t, sc.ChunkEntries, 2)
	// p1's entry carries its best chunk score and its chunks concatenated in
	// document order.
	assert.Equal(t, "p1", sc.ChunkEntries[0].PaperID)
	assert.Equal(t, float32(0.95), sc.ChunkEntries[0].Score)
	assert.Equal(t, "earlier passage\n\nlater passage", sc.ChunkEntries[0].Text)
	assert.Equal(t, "p2", sc.ChunkEntries[1].PaperID)
}

func TestChunkSearch_RerankerFailureKeepsSimilarityOrder(t *testing.T) {
	chunkRepo := new(MockChunkRepository)
	reranker := new(MockReranker)
	sc := newStageContext()
	cfg := retrieval.DefaultConfig()
	ctx := context.Background()

	chunkRepo.On("SearchByEmbedding", ctx, "user-1", mock.Anything, mock.Anything).
		Return([]domain.ChunkSearchResult{
			{Chunk: domain.PaperChunk{PaperID: "p1", ChunkIndex: 0, ChunkText: "best"}, Score: 0.9, Title: "Paper One"},
			{Chunk: domain.PaperChunk{PaperID: "p2", ChunkIndex: 0, ChunkText: "second"}, Score: 0.8, Title: "Paper Two"},
		}, nil)
	reranker.On("Rerank", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("rerank unavailable"))

	retrieval.ChunkSearch(ctx, sc, chunkRepo, reranker, cfg, testLogger())

	assert.Len(t, sc.ChunkEntries, 2)
	assert.Equal(t, "p1", sc.ChunkEntries[0].PaperID)
}

func TestChunkSearch_SkippedWithoutQuestionEmbedding(t *testing.T) {
	chunkRepo := new(MockChunkRepository)
	sc := newStageContext()
	sc.QuestionEmbedding = nil

	retrieval.ChunkSearch(context.Background(), sc, chunkRepo, new(MockReranker), retrieval.DefaultConfig(), testLogger())

	assert.Empty(t, sc.ChunkEntries)
	chunkRepo.AssertNotCalled(t, "SearchByEmbedding", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPaperFallback_OnlyRunsWhenChunkPassIsEmpty(t *testing.T) {
	paperRepo := new(MockPaperRepository)
	sc := newStageContext()
	sc.ChunkEntries = []domain.ContextEntry{{PaperID: "p1"}}

	retrieval.PaperFallback(context.Background(), sc, paperRepo, new(MockReranker), retrieval.DefaultConfig(), testLogger())

	assert.Empty(t, sc.PaperEntries)
	paperRepo.AssertNotCalled(t, "SearchByEmbedding", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPaperFallback_CoversChunkSearchFailure(t *testing.T) {
	chunkRepo := new(MockChunkRepository)
	paperRepo := new(MockPaperRepository)
	reranker := new(MockReranker)
	sc := newStageContext()
	cfg := retrieval.DefaultConfig()
	ctx := context.Background()

	// The chunk store is down; retrieval must still answer from whole-paper
	// embeddings.
	chunkRepo.On("SearchByEmbedding", ctx, "user-1", mock.Anything, mock.Anything).
		Return(nil, errors.New("relation paper_chunks does not exist"))
	retrieval.ChunkSearch(ctx, sc, chunkRepo, reranker, cfg, testLogger())
	assert.Empty(t, sc.ChunkEntries)

	paperRepo.On("SearchByEmbedding", ctx, "user-1", sc.QuestionEmbedding, cfg.PaperCandidates).
		Return([]domain.PaperSearchResult{
			{Paper: domain.Paper{CanonicalID: "p1", Title: "Paper One", Abstract: "abs"}, Score: 0.8},
		}, nil)
	reranker.On("Rerank", mock.Anything, sc.Question, mock.Anything, cfg.PaperKeep).
		Return([]domain.RerankResult{{ID: "p1", Score: 0.9}}, nil)

	retrieval.PaperFallback(ctx, sc, paperRepo, reranker, cfg, testLogger())

	assert.Len(t, sc.PaperEntries, 1)
	assert.Equal(t, "p1", sc.PaperEntries[0].PaperID)
	assert.Equal(t, float32(0.9), sc.PaperEntries[0].Score)
}

func TestPaperFallback_RerankerFailureKeepsSimilarityScores(t *testing.T) {
	paperRepo := new(MockPaperRepository)
	reranker := new(MockReranker)
	sc := newStageContext()
	cfg := retrieval.DefaultConfig()
	ctx := context.Background()

	paperRepo.On("SearchByEmbedding", ctx, "user-1", mock.Anything, mock.Anything).
		Return([]domain.PaperSearchResult{
			{Paper: domain.Paper{CanonicalID: "p1", Title: "One", Abstract: "a"}, Score: 0.8},
			{Paper: domain.Paper{CanonicalID: "p2", Title: "Two", Abstract: "b"}, Score: 0.6},
		}, nil)
	reranker.On("Rerank", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("rerank unavailable"))

	retrieval.PaperFallback(ctx, sc, paperRepo, reranker, cfg, testLogger())

	assert.Len(t, sc.PaperEntries, 2)
	assert.Equal(t, float32(0.8), sc.PaperEntries[0].Score)
	assert.Equal(t, float32(0.6), sc.PaperEntries[1].Score)
}

func TestMerge_TitleMatchesComeFirstAndDuplicatesDrop(t *testing.T) {
	sc := &retrieval.StageContext{
		TitleMatches: []domain.ContextEntry{
			{PaperID: "p1", FromTitle: true, Score: 0.5},
		},
		ChunkEntries: []domain.ContextEntry{
			{PaperID: "p2", Score: 0.9},
			{PaperID: "p1", Score: 0.8}, // same paper found by vector search
		},
		PaperEntries: []domain.ContextEntry{
			{PaperID: "p3", Score: 0.4},
		},
	}

	retrieval.Merge(sc)

	assert.Len(t, sc.Merged, 3)
	assert.Equal(t, "p1", sc.Merged[0].PaperID)
	assert.True(t, sc.Merged[0].FromTitle)
	assert.Equal(t, "p2", sc.Merged[1].PaperID)
	assert.Equal(t, "p3", sc.Merged[2].PaperID)
}
