package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"paperpulse/internal/domain"
)

type feedRepository struct {
	pool *pgxpool.Pool
}

// NewFeedRepository creates a new FeedRepository.
func NewFeedRepository(pool *pgxpool.Pool) domain.FeedRepository {
	return &feedRepository{pool: pool}
}

// Insert adds a paper to a user's feed. Re-ranking the same paper into the
// same feed on a later run is a no-op, keeping the first score.
func (r *feedRepository) Insert(ctx context.Context, item domain.FeedItem) error {
	query := `
		INSERT INTO feed_items (id, user_id, paper_id, relevance_score, is_saved, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (user_id, paper_id) DO NOTHING
	`
	_, err := executor(ctx, r.pool).Exec(ctx, query,
		item.ID, item.UserID, item.PaperID, item.RelevanceScore, item.IsSaved)
	if err != nil {
		return fmt.Errorf("failed to insert feed item: %w", err)
	}
	return nil
}

// ListForUser returns the feed joined with papers, most relevant first;
// recency only breaks ties between equal scores.
func (r *feedRepository) ListForUser(ctx context.Context, userID string, limit int) ([]domain.FeedEntry, error) {
	query := `
		SELECT f.id, f.user_id, f.paper_id, f.relevance_score, f.is_saved, f.created_at,
		       p.canonical_id, p.title, p.authors, p.published_date, p.abstract,
		       p.summary, p.url, p.source, p.doi, p.created_at
		FROM feed_items f
		JOIN papers p ON p.canonical_id = f.paper_id
		WHERE f.user_id = $1
		ORDER BY f.relevance_score DESC, f.created_at DESC
		LIMIT $2
	`
	rows, err := executor(ctx, r.pool).Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list feed: %w", err)
	}
	defer rows.Close()

	var entries []domain.FeedEntry
	for rows.Next() {
		var e domain.FeedEntry
		if err := rows.Scan(&e.Item.ID, &e.Item.UserID, &e.Item.PaperID,
			&e.Item.RelevanceScore, &e.Item.IsSaved, &e.Item.CreatedAt,
			&e.Paper.CanonicalID, &e.Paper.Title, &e.Paper.Authors,
			&e.Paper.PublishedDate, &e.Paper.Abstract, &e.Paper.Summary,
			&e.Paper.URL, &e.Paper.Source, &e.Paper.DOI, &e.Paper.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feed entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return entries, nil
}

func (r *feedRepository) Titles(ctx context.Context, userID string) (map[string]string, error) {
	query := `
		SELECT p.canonical_id, p.title
		FROM feed_items f
		JOIN papers p ON p.canonical_id = f.paper_id
		WHERE f.user_id = $1
	`
	rows, err := executor(ctx, r.pool).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list feed titles: %w", err)
	}
	defer rows.Close()

	titles := make(map[string]string)
	for rows.Next() {
		var id, title string
		if err := rows.Scan(&id, &title); err != nil {
			return nil, fmt.Errorf("failed to scan feed title: %w", err)
		}
		titles[id] = title
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return titles, nil
}

func (r *feedRepository) SetSaved(ctx context.Context, itemID uuid.UUID, saved bool) error {
	query := `
		UPDATE feed_items
		SET is_saved = $2
		WHERE id = $1
	`
	tag, err := executor(ctx, r.pool).Exec(ctx, query, itemID, saved)
	if err != nil {
		return fmt.Errorf("failed to update feed item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("feed item not found: %s", itemID)
	}
	return nil
}
