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

func TestEnsureProfile_CachedProfileIsNotRegenerated(t *testing.T) {
	userRepo := new(MockUserRepository)
	llm := new(MockCompletionClient)
	uc := usecase.NewQueryProfileUsecase(userRepo, llm, discardLogger())

	cached := &domain.QueryProfile{SearchQueries: []string{"graph neural networks"}}
	user := &domain.User{ID: "user-1", InterestText: "GNNs", Profile: cached}

	profile, err := uc.EnsureProfile(context.Background(), user)

	assert.NoError(t, err)
	assert.Equal(t, *cached, profile)
	llm.AssertNotCalled(t, "OptimizeInterests", mock.Anything, mock.Anything, mock.Anything)
	userRepo.AssertNotCalled(t, "SaveProfile", mock.Anything, mock.Anything, mock.Anything)
}

func TestEnsureProfile_GeneratesAndCachesWhenEmpty(t *testing.T) {
	userRepo := new(MockUserRepository)
	llm := new(MockCompletionClient)
	uc := usecase.NewQueryProfileUsecase(userRepo, llm, discardLogger())
	ctx := context.Background()

	user := &domain.User{ID: "user-1", InterestText: "protein folding with deep learning", Domains: []string{"biology"}}
	generated := domain.QueryProfile{
		SearchQueries: []string{"protein structure prediction deep learning"},
		Keywords:      []string{"alphafold"},
	}

	llm.On("OptimizeInterests", ctx, user.InterestText, user.Domains).Return(generated, nil)
	userRepo.On("SaveProfile", ctx, "user-1", generated).Return(nil)

	profile, err := uc.EnsureProfile(ctx, user)

	assert.NoError(t, err)
	assert.Equal(t, generated, profile)
	userRepo.AssertExpectations(t)
}

func TestEnsureProfile_LLMFailureFallsBackToKeywordExtraction(t *testing.T) {
	userRepo := new(MockUserRepository)
	llm := new(MockCompletionClient)
	uc := usecase.NewQueryProfileUsecase(userRepo, llm, discardLogger())
	ctx := context.Background()

	user := &domain.User{ID: "user-1", InterestText: "sparse attention mechanisms for long documents"}

	llm.On("OptimizeInterests", ctx, mock.Anything, mock.Anything).
		Return(domain.QueryProfile{}, errors.New("rate limited"))
	userRepo.On("SaveProfile", ctx, "user-1", mock.Anything).Return(nil)

	profile, err := uc.EnsureProfile(ctx, user)

	assert.NoError(t, err)
	assert.NotEmpty(t, profile.SearchQueries)
	assert.Contains(t, profile.Keywords, "sparse")
	assert.Contains(t, profile.Keywords, "attention")
}

func TestFallbackProfile(t *testing.T) {
	t.Run("extracts keywords and builds queries", func(t *testing.T) {
		profile := usecase.FallbackProfile("reinforcement learning for robotic manipulation")

		assert.Equal(t, []string{"reinforcement", "learning", "robotic", "manipulation"}, profile.Keywords)
		assert.NotEmpty(t, profile.SearchQueries)
		assert.Equal(t, "reinforcement learning robotic", profile.SearchQueries[0])
	})

	t.Run("drops stop words and short tokens", func(t *testing.T) {
		profile := usecase.FallbackProfile("I am interested in the study of AI")

		assert.NotContains(t, profile.Keywords, "the")
		assert.NotContains(t, profile.Keywords, "am")
	})
}
