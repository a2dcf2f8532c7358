package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"paperpulse/internal/domain"
)

// ErrPipelineRunning is returned when a run is requested while another is
// still in flight.
var ErrPipelineRunning = errors.New("pipeline already running")

// PipelineUsecase orchestrates one full batch run: per-user fetch fan-out,
// global deduplication, enrichment, and per-user ranking.
type PipelineUsecase interface {
	Run(ctx context.Context) (PipelineStatus, error)
	Status() PipelineStatus
}

type pipelineUsecase struct {
	userRepo   domain.UserRepository
	providers  []domain.SourceProvider // fixed priority order, most reliable IDs first
	deduper    domain.Deduplicator
	profiles   QueryProfileUsecase
	enricher   EnrichUsecase
	ranker     RankUsecase
	status     *StatusCoordinator
	maxResults int
	feedSize   int
	logger     *slog.Logger
}

// NewPipelineUsecase creates a new PipelineUsecase.
func NewPipelineUsecase(
	userRepo domain.UserRepository,
	providers []domain.SourceProvider,
	deduper domain.Deduplicator,
	profiles QueryProfileUsecase,
	enricher EnrichUsecase,
	ranker RankUsecase,
	maxResults int,
	feedSize int,
	logger *slog.Logger,
) PipelineUsecase {
	if maxResults <= 0 {
		maxResults = 30
	}
	if feedSize <= 0 {
		feedSize = 25
	}
	return &pipelineUsecase{
		userRepo:   userRepo,
		providers:  providers,
		deduper:    deduper,
		profiles:   profiles,
		enricher:   enricher,
		ranker:     ranker,
		status:     NewStatusCoordinator(),
		maxResults: maxResults,
		feedSize:   feedSize,
		logger:     logger,
	}
}

func (u *pipelineUsecase) Status() PipelineStatus {
	return u.status.Snapshot()
}

// Run executes one batch. A concurrent invocation while a run is in
// flight returns ErrPipelineRunning together with the live status.
func (u *pipelineUsecase) Run(ctx context.Context) (PipelineStatus, error) {
	if !u.status.TryStart() {
		return u.status.Snapshot(), ErrPipelineRunning
	}

	papersStored, usersServed, err := u.run(ctx)
	u.status.Finish(papersStored, usersServed, err)
	return u.status.Snapshot(), err
}

type userPool struct {
	user  *domain.User
	lists [][]domain.CandidatePaper // indexed by provider, priority order
}

func (u *pipelineUsecase) run(ctx context.Context) (papersStored, usersServed int, err error) {
	start := time.Now()
	u.logger.Info("pipeline_started")

	users, err := u.userRepo.List(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list users: %w", err)
	}
	if len(users) == 0 {
		u.logger.Info("pipeline_no_users")
		return 0, 0, nil
	}

	pools := u.fetchAll(ctx, users)

	// Per-user dedup in provider priority order, then a global merge so
	// each unique paper is enriched once regardless of how many users
	// pulled it in.
	var globalLists [][]domain.CandidatePaper
	perUser := make([]struct {
		user *domain.User
		pool []domain.CandidatePaper
	}, len(pools))
	for i, up := range pools {
		merged := u.deduper.Merge(up.lists)
		perUser[i].user = up.user
		perUser[i].pool = merged
		globalLists = append(globalLists, merged)
	}
	global := u.deduper.Merge(globalLists)

	u.logger.Info("dedup_completed",
		slog.Int("user_count", len(users)),
		slog.Int("global_unique_count", len(global)))

	enriched, err := u.enricher.Enrich(ctx, global)
	if err != nil {
		return 0, 0, fmt.Errorf("enrichment failed: %w", err)
	}
	persisted := make(map[string]domain.Paper, len(enriched.Papers))
	for _, p := range enriched.Papers {
		persisted[p.CanonicalID] = p
	}

	for _, up := range perUser {
		profile := domain.QueryProfile{}
		if up.user.Profile != nil {
			profile = *up.user.Profile
		}

		var pool []domain.Paper
		for _, cand := range up.pool {
			if p, ok := persisted[cand.CanonicalID]; ok {
				pool = append(pool, p)
			}
		}

		if _, err := u.ranker.Rank(ctx, up.user, pool, profile, u.feedSize); err != nil {
			u.logger.Warn("ranking_failed",
				slog.String("user_id", up.user.ID),
				slog.String("error", err.Error()))
			continue
		}
		usersServed++
	}

	u.logger.Info("pipeline_completed",
		slog.Int("papers_stored", enriched.NewlyStored),
		slog.Int("users_served", usersServed),
		slog.Duration("elapsed", time.Since(start)))
	return enriched.NewlyStored, usersServed, nil
}

// fetchAll fans out across (user, provider) pairs. Each provider paces its
// own requests, so cross-provider and cross-user calls run concurrently
// while same-provider calls queue on its rate limiter. A failing provider
// contributes an empty list, never a failed run.
func (u *pipelineUsecase) fetchAll(ctx context.Context, users []domain.User) []userPool {
	pools := make([]userPool, len(users))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for ui := range users {
		user := &users[ui]
		pools[ui] = userPool{user: user, lists: make([][]domain.CandidatePaper, len(u.providers))}

		profile, err := u.profiles.EnsureProfile(ctx, user)
		if err != nil {
			u.logger.Warn("profile_unavailable",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()))
		}
		user.Profile = &profile

		req := domain.FetchRequest{
			Domains:       user.Domains,
			MaxResults:    u.maxResults,
			SearchQueries: profile.SearchQueries,
			CategoryHints: profile.ArxivCategories,
		}

		for pi, provider := range u.providers {
			g.Go(func() error {
				papers, err := provider.Fetch(gctx, req)
				if err != nil {
					u.logger.Warn("provider_fetch_failed",
						slog.String("provider", provider.Name()),
						slog.String("user_id", user.ID),
						slog.String("error", err.Error()))
					return nil
				}
				mu.Lock()
				pools[ui].lists[pi] = papers
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()
	return pools
}
