package usecase_test

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"paperpulse/internal/domain"
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

// MockUserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockUserRepository) UpdateInterests(ctx context.Context, userID, interestText string, domains []string) error {
	args := m.Called(ctx, userID, interestText, domains)
	return args.Error(0)
}

func (m *MockUserRepository) SaveProfile(ctx context.Context, userID string, profile domain.QueryProfile) error {
	args := m.Called(ctx, userID, profile)
	return args.Error(0)
}

// MockChatRepository
type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) CreateChat(ctx context.Context, chat *domain.Chat) error {
	args := m.Called(ctx, chat)
	return args.Error(0)
}

func (m *MockChatRepository) GetChat(ctx context.Context, chatID uuid.UUID) (*domain.Chat, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Chat), args.Error(1)
}

func (m *MockChatRepository) ListChats(ctx context.Context, userID string) ([]domain.Chat, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Chat), args.Error(1)
}

func (m *MockChatRepository) UpdateChat(ctx context.Context, chatID uuid.UUID, title *string, starred *bool) error {
	args := m.Called(ctx, chatID, title, starred)
	return args.Error(0)
}

func (m *MockChatRepository) DeleteChat(ctx context.Context, chatID uuid.UUID) error {
	args := m.Called(ctx, chatID)
	return args.Error(0)
}

func (m *MockChatRepository) AddMessage(ctx context.Context, msg *domain.ChatMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockChatRepository) ListMessages(ctx context.Context, chatID uuid.UUID) ([]domain.ChatMessage, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ChatMessage), args.Error(1)
}

// MockEmbedder
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *MockEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbedder) Model() string {
	return "mock-embedder"
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

// MockCompletionClient
type MockCompletionClient struct {
	mock.Mock
}

func (m *MockCompletionClient) SummarizeAbstract(ctx context.Context, abstract string) (string, error) {
	args := m.Called(ctx, abstract)
	return args.String(0), args.Error(1)
}

func (m *MockCompletionClient) ClassifyIntent(ctx context.Context, question string, history []domain.ChatTurn) (domain.Intent, error) {
	args := m.Called(ctx, question, history)
	return args.Get(0).(domain.Intent), args.Error(1)
}

func (m *MockCompletionClient) GenerateTitle(ctx context.Context, firstMessage string) (string, error) {
	args := m.Called(ctx, firstMessage)
	return args.String(0), args.Error(1)
}

func (m *MockCompletionClient) ExtractEntities(ctx context.Context, title, abstract string) (domain.Entities, error) {
	args := m.Called(ctx, title, abstract)
	return args.Get(0).(domain.Entities), args.Error(1)
}

func (m *MockCompletionClient) OptimizeInterests(ctx context.Context, interestText string, domains []string) (domain.QueryProfile, error) {
	args := m.Called(ctx, interestText, domains)
	return args.Get(0).(domain.QueryProfile), args.Error(1)
}

func (m *MockCompletionClient) AnswerQuestion(ctx context.Context, question string, rc *domain.RetrievalContext, history []domain.ChatTurn) (domain.Answer, error) {
	args := m.Called(ctx, question, rc, history)
	return args.Get(0).(domain.Answer), args.Error(1)
}

// MockExtractor
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, paper domain.CandidatePaper) (string, error) {
	args := m.Called(ctx, paper)
	return args.String(0), args.Error(1)
}

// MockProvider
type MockProvider struct {
	mock.Mock
	name string
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) Fetch(ctx context.Context, req domain.FetchRequest) ([]domain.CandidatePaper, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CandidatePaper), args.Error(1)
}

// MockGraphStore
type MockGraphStore struct {
	mock.Mock
}

func (m *MockGraphStore) UpsertPapers(ctx context.Context, papers []domain.Paper) error {
	args := m.Called(ctx, papers)
	return args.Error(0)
}

func (m *MockGraphStore) UpsertConcepts(ctx context.Context, paperID string, concepts []string) error {
	args := m.Called(ctx, paperID, concepts)
	return args.Error(0)
}

func (m *MockGraphStore) UpsertCitations(ctx context.Context, paperID string, links domain.CitationLinks) error {
	args := m.Called(ctx, paperID, links)
	return args.Error(0)
}

func (m *MockGraphStore) RelatedPapers(ctx context.Context, paperID string, limit int) ([]domain.RelatedPaper, error) {
	args := m.Called(ctx, paperID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RelatedPaper), args.Error(1)
}

func (m *MockGraphStore) ContextForPapers(ctx context.Context, paperIDs []string) (string, error) {
	args := m.Called(ctx, paperIDs)
	return args.String(0), args.Error(1)
}

func (m *MockGraphStore) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockCitationFetcher
type MockCitationFetcher struct {
	mock.Mock
}

func (m *MockCitationFetcher) FetchCitations(ctx context.Context, paper domain.Paper) (domain.CitationLinks, error) {
	args := m.Called(ctx, paper)
	return args.Get(0).(domain.CitationLinks), args.Error(1)
}
