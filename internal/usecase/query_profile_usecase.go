package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"paperpulse/internal/domain"
)

// QueryProfileUsecase manages each user's cached search profile. The
// profile is generated once at onboarding (or explicit refresh) and reused
// by every pipeline run until refreshed: EnsureProfile never regenerates a
// non-empty cache.
type QueryProfileUsecase interface {
	EnsureProfile(ctx context.Context, user *domain.User) (domain.QueryProfile, error)
	RefreshProfile(ctx context.Context, userID string) (domain.QueryProfile, error)
}

type queryProfileUsecase struct {
	userRepo domain.UserRepository
	llm      domain.CompletionClient
	logger   *slog.Logger
}

// NewQueryProfileUsecase creates a new QueryProfileUsecase.
func NewQueryProfileUsecase(userRepo domain.UserRepository, llm domain.CompletionClient, logger *slog.Logger) QueryProfileUsecase {
	return &queryProfileUsecase{
		userRepo: userRepo,
		llm:      llm,
		logger:   logger,
	}
}

// EnsureProfile returns the cached profile, generating and caching one
// only when the cache is empty.
func (u *queryProfileUsecase) EnsureProfile(ctx context.Context, user *domain.User) (domain.QueryProfile, error) {
	if !user.Profile.IsEmpty() {
		return *user.Profile, nil
	}
	return u.generate(ctx, user)
}

// RefreshProfile regenerates the profile unconditionally, for explicit
// interest updates.
func (u *queryProfileUsecase) RefreshProfile(ctx context.Context, userID string) (domain.QueryProfile, error) {
	user, err := u.userRepo.GetByID(ctx, userID)
	if err != nil {
		return domain.QueryProfile{}, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return domain.QueryProfile{}, fmt.Errorf("user not found: %s", userID)
	}
	return u.generate(ctx, user)
}

func (u *queryProfileUsecase) generate(ctx context.Context, user *domain.User) (domain.QueryProfile, error) {
	if strings.TrimSpace(user.InterestText) == "" {
		return domain.QueryProfile{}, nil
	}

	profile, err := u.llm.OptimizeInterests(ctx, user.InterestText, user.Domains)
	if err != nil {
		u.logger.Warn("profile_optimization_failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()))
		profile = FallbackProfile(user.InterestText)
	}

	if err := u.userRepo.SaveProfile(ctx, user.ID, profile); err != nil {
		return domain.QueryProfile{}, fmt.Errorf("failed to cache profile: %w", err)
	}

	u.logger.Info("profile_generated",
		slog.String("user_id", user.ID),
		slog.Int("query_count", len(profile.SearchQueries)),
		slog.Int("keyword_count", len(profile.Keywords)))
	return profile, nil
}

// profileStopWords are dropped by the keyword-extraction fallback.
var profileStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "from": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "have": true,
	"has": true, "had": true, "i": true, "my": true, "me": true, "we": true,
	"us": true, "am": true, "not": true, "interested": true,
	"interest": true, "like": true, "want": true, "research": true,
	"study": true, "using": true, "based": true, "new": true, "i'm": true,
	"particularly": true, "especially": true, "including": true,
	"related": true, "focusing": true, "focused": true, "about": true,
}

// FallbackProfile extracts a simple keyword-based profile when the LLM
// optimizer is unavailable.
func FallbackProfile(interestText string) domain.QueryProfile {
	var keywords []string
	for _, w := range strings.Fields(interestText) {
		w = strings.Trim(w, `.,!?()[]{}"':;`)
		if len(w) > 2 && !profileStopWords[strings.ToLower(w)] {
			keywords = append(keywords, w)
		}
		if len(keywords) == 10 {
			break
		}
	}

	var queries []string
	switch {
	case len(keywords) >= 4:
		queries = append(queries, strings.Join(keywords[:3], " "))
		end := 6
		if end > len(keywords) {
			end = len(keywords)
		}
		queries = append(queries, strings.Join(keywords[3:end], " "))
	case len(keywords) > 0:
		queries = append(queries, strings.Join(keywords, " "))
	}

	return domain.QueryProfile{
		SearchQueries: queries,
		Keywords:      keywords,
	}
}
