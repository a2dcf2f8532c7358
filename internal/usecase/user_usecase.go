package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"paperpulse/internal/domain"
)

// CreateUserInput is the onboarding payload.
type CreateUserInput struct {
	Email        string
	Domains      []string
	InterestText string
}

// UserUsecase handles onboarding and profile reads.
type UserUsecase interface {
	CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error)
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	UpdateInterests(ctx context.Context, userID, interestText string, domains []string) (*domain.User, error)
}

type userUsecase struct {
	userRepo domain.UserRepository
	profiles QueryProfileUsecase
	logger   *slog.Logger
}

// NewUserUsecase creates a new UserUsecase.
func NewUserUsecase(userRepo domain.UserRepository, profiles QueryProfileUsecase, logger *slog.Logger) UserUsecase {
	return &userUsecase{
		userRepo: userRepo,
		profiles: profiles,
		logger:   logger,
	}
}

// CreateUser registers a user and generates their query profile. Profile
// generation is best-effort: the user is created even when the optimizer
// is unavailable, and the next pipeline run retries.
func (u *userUsecase) CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if len(input.Domains) == 0 {
		return nil, fmt.Errorf("at least one research domain is required")
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Domains:      input.Domains,
		InterestText: strings.TrimSpace(input.InterestText),
	}
	if err := u.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	profile, err := u.profiles.EnsureProfile(ctx, user)
	if err != nil {
		u.logger.Warn("onboarding_profile_deferred",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()))
	} else {
		user.Profile = &profile
	}

	u.logger.Info("user_created",
		slog.String("user_id", user.ID),
		slog.Int("domain_count", len(user.Domains)))
	return user, nil
}

func (u *userUsecase) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return u.userRepo.GetByID(ctx, userID)
}

// UpdateInterests replaces the user's interest text and regenerates the
// cached query profile.
func (u *userUsecase) UpdateInterests(ctx context.Context, userID, interestText string, domains []string) (*domain.User, error) {
	user, err := u.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, nil
	}

	user.InterestText = strings.TrimSpace(interestText)
	if len(domains) > 0 {
		user.Domains = domains
	}
	if err := u.userRepo.UpdateInterests(ctx, userID, user.InterestText, domains); err != nil {
		return nil, fmt.Errorf("failed to update interests: %w", err)
	}

	profile, err := u.profiles.RefreshProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh profile: %w", err)
	}
	user.Profile = &profile
	return user, nil
}
