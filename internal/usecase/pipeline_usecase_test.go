package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"paperpulse/internal/domain"
	"paperpulse/internal/usecase"
)

// MockProfiles
type MockProfiles struct {
	mock.Mock
}

func (m *MockProfiles) EnsureProfile(ctx context.Context, user *domain.User) (domain.QueryProfile, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(domain.QueryProfile), args.Error(1)
}

func (m *MockProfiles) RefreshProfile(ctx context.Context, userID string) (domain.QueryProfile, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.QueryProfile), args.Error(1)
}

// MockEnricher
type MockEnricher struct {
	mock.Mock
}

func (m *MockEnricher) Enrich(ctx context.Context, candidates []domain.CandidatePaper) (*usecase.EnrichResult, error) {
	args := m.Called(ctx, candidates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.EnrichResult), args.Error(1)
}

// MockRanker
type MockRanker struct {
	mock.Mock
}

func (m *MockRanker) Rank(ctx context.Context, user *domain.User, pool []domain.Paper, profile domain.QueryProfile, topN int) (int, error) {
	args := m.Called(ctx, user, pool, profile, topN)
	return args.Int(0), args.Error(1)
}

func TestPipelineRun_DeduplicatesAcrossProvidersAndUsers(t *testing.T) {
	userRepo := new(MockUserRepository)
	profiles := new(MockProfiles)
	enricher := new(MockEnricher)
	ranker := new(MockRanker)
	arxiv := &MockProvider{name: "arxiv"}
	openalex := &MockProvider{name: "openalex"}

	uc := usecase.NewPipelineUsecase(
		userRepo,
		[]domain.SourceProvider{arxiv, openalex},
		domain.NewDeduplicator(),
		profiles, enricher, ranker,
		30, 25, discardLogger(),
	)
	ctx := context.Background()

	users := []domain.User{{ID: "user-1", Domains: []string{"cs"}}}
	userRepo.On("List", ctx).Return(users, nil)
	profiles.On("EnsureProfile", ctx, mock.Anything).Return(domain.QueryProfile{}, nil)

	// Both providers return the same paper under the same canonical ID; the
	// first provider in priority order wins.
	shared := domain.CandidatePaper{CanonicalID: "1706.03762", Title: "Attention Is All You Need", Source: "arxiv"}
	dup := domain.CandidatePaper{CanonicalID: "1706.03762", Title: "Attention Is All You Need", Source: "openalex"}
	extra := domain.CandidatePaper{CanonicalID: "OA:W2741809807", Title: "Another Work", Source: "openalex"}

	arxiv.On("Fetch", mock.Anything, mock.Anything).Return([]domain.CandidatePaper{shared}, nil)
	openalex.On("Fetch", mock.Anything, mock.Anything).Return([]domain.CandidatePaper{dup, extra}, nil)

	enricher.On("Enrich", ctx, mock.MatchedBy(func(cands []domain.CandidatePaper) bool {
		if len(cands) != 2 {
			return false
		}
		return cands[0].CanonicalID == "1706.03762" && cands[0].Source == "arxiv"
	})).Return(&usecase.EnrichResult{
		Papers: []domain.Paper{
			{CanonicalID: "1706.03762", Source: "arxiv"},
			{CanonicalID: "OA:W2741809807", Source: "openalex"},
		},
		NewlyStored: 2,
	}, nil)

	ranker.On("Rank", ctx, mock.Anything, mock.MatchedBy(func(pool []domain.Paper) bool {
		return len(pool) == 2
	}), mock.Anything, 25).Return(2, nil)

	status, err := uc.Run(ctx)

	assert.NoError(t, err)
	assert.Equal(t, usecase.PipelineDone, status.State)
	assert.Equal(t, 2, status.PapersStored)
	assert.Equal(t, 1, status.UsersServed)
	enricher.AssertExpectations(t)
	ranker.AssertExpectations(t)
}

func TestPipelineRun_FailingProviderDegradesToEmptyContribution(t *testing.T) {
	userRepo := new(MockUserRepository)
	profiles := new(MockProfiles)
	enricher := new(MockEnricher)
	ranker := new(MockRanker)
	arxiv := &MockProvider{name: "arxiv"}
	pubmed := &MockProvider{name: "pubmed"}

	uc := usecase.NewPipelineUsecase(
		userRepo,
		[]domain.SourceProvider{arxiv, pubmed},
		domain.NewDeduplicator(),
		profiles, enricher, ranker,
		30, 25, discardLogger(),
	)
	ctx := context.Background()

	userRepo.On("List", ctx).Return([]domain.User{{ID: "user-1"}}, nil)
	profiles.On("EnsureProfile", ctx, mock.Anything).Return(domain.QueryProfile{}, nil)

	arxiv.On("Fetch", mock.Anything, mock.Anything).Return([]domain.CandidatePaper{
		{CanonicalID: "2301.00001", Title: "Survives"},
	}, nil)
	pubmed.On("Fetch", mock.Anything, mock.Anything).Return(nil, errors.New("efetch timeout"))

	enricher.On("Enrich", ctx, mock.MatchedBy(func(cands []domain.CandidatePaper) bool {
		return len(cands) == 1 && cands[0].CanonicalID == "2301.00001"
	})).Return(&usecase.EnrichResult{
		Papers:      []domain.Paper{{CanonicalID: "2301.00001"}},
		NewlyStored: 1,
	}, nil)
	ranker.On("Rank", ctx, mock.Anything, mock.Anything, mock.Anything, 25).Return(1, nil)

	status, err := uc.Run(ctx)

	assert.NoError(t, err)
	assert.Equal(t, usecase.PipelineDone, status.State)
	assert.Equal(t, 1, status.PapersStored)
}

func TestPipelineRun_NoUsersIsCleanNoop(t *testing.T) {
	userRepo := new(MockUserRepository)
	uc := usecase.NewPipelineUsecase(
		userRepo, nil, domain.NewDeduplicator(),
		new(MockProfiles), new(MockEnricher), new(MockRanker),
		30, 25, discardLogger(),
	)
	ctx := context.Background()

	userRepo.On("List", ctx).Return([]domain.User{}, nil)

	status, err := uc.Run(ctx)

	assert.NoError(t, err)
	assert.Equal(t, usecase.PipelineDone, status.State)
	assert.Equal(t, 0, status.PapersStored)
}

func TestPipelineRun_EnrichmentFailureSurfacesAsError(t *testing.T) {
	userRepo := new(MockUserRepository)
	profiles := new(MockProfiles)
	enricher := new(MockEnricher)
	arxiv := &MockProvider{name: "arxiv"}

	uc := usecase.NewPipelineUsecase(
		userRepo, []domain.SourceProvider{arxiv}, domain.NewDeduplicator(),
		profiles, enricher, new(MockRanker),
		30, 25, discardLogger(),
	)
	ctx := context.Background()

	userRepo.On("List", ctx).Return([]domain.User{{ID: "user-1"}}, nil)
	profiles.On("EnsureProfile", ctx, mock.Anything).Return(domain.QueryProfile{}, nil)
	arxiv.On("Fetch", mock.Anything, mock.Anything).Return([]domain.CandidatePaper{
		{CanonicalID: "a", Title: "T"},
	}, nil)
	enricher.On("Enrich", ctx, mock.Anything).Return(nil, errors.New("database unavailable"))

	status, err := uc.Run(ctx)

	assert.Error(t, err)
	assert.Equal(t, usecase.PipelineError, status.State)
	assert.Contains(t, status.LastError, "database unavailable")
}
