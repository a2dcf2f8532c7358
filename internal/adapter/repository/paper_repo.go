package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"paperpulse/internal/domain"
)

type paperRepository struct {
	pool *pgxpool.Pool
}

// NewPaperRepository creates a new PaperRepository.
func NewPaperRepository(pool *pgxpool.Pool) domain.PaperRepository {
	return &paperRepository{pool: pool}
}

const paperColumns = `canonical_id, title, authors, published_date, abstract, summary, url, source, doi, full_text, embedding, created_at`

func (r *paperRepository) GetByID(ctx context.Context, canonicalID string) (*domain.Paper, error) {
	query := `
		SELECT ` + paperColumns + `
		FROM papers
		WHERE canonical_id = $1
	`
	row := executor(ctx, r.pool).QueryRow(ctx, query, canonicalID)

	var p domain.Paper
	err := row.Scan(&p.CanonicalID, &p.Title, &p.Authors, &p.PublishedDate,
		&p.Abstract, &p.Summary, &p.URL, &p.Source, &p.DOI, &p.FullText,
		&p.Embedding, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get paper: %w", err)
	}
	return &p, nil
}

func (r *paperRepository) Insert(ctx context.Context, paper *domain.Paper) error {
	query := `
		INSERT INTO papers (` + paperColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		ON CONFLICT (canonical_id) DO NOTHING
	`
	_, err := executor(ctx, r.pool).Exec(ctx, query,
		paper.CanonicalID, paper.Title, paper.Authors, paper.PublishedDate,
		paper.Abstract, paper.Summary, paper.URL, paper.Source, paper.DOI,
		paper.FullText, paper.Embedding)
	if err != nil {
		return fmt.Errorf("failed to insert paper: %w", err)
	}
	return nil
}

func (r *paperRepository) SearchByEmbedding(ctx context.Context, userID string, query []float32, limit int) ([]domain.PaperSearchResult, error) {
	sql := `
		SELECT p.canonical_id, p.title, p.authors, p.published_date, p.abstract,
		       p.summary, p.url, p.source, p.doi, p.full_text, p.created_at,
		       1 - (p.embedding <=> $2) AS score
		FROM papers p
		JOIN feed_items f ON f.paper_id = p.canonical_id
		WHERE f.user_id = $1 AND p.embedding IS NOT NULL
		ORDER BY p.embedding <=> $2
		LIMIT $3
	`
	rows, err := executor(ctx, r.pool).Query(ctx, sql, userID, pgvector.NewVector(query), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search papers: %w", err)
	}
	defer rows.Close()

	var results []domain.PaperSearchResult
	for rows.Next() {
		var res domain.PaperSearchResult
		if err := rows.Scan(&res.Paper.CanonicalID, &res.Paper.Title, &res.Paper.Authors,
			&res.Paper.PublishedDate, &res.Paper.Abstract, &res.Paper.Summary,
			&res.Paper.URL, &res.Paper.Source, &res.Paper.DOI, &res.Paper.FullText,
			&res.Paper.CreatedAt, &res.Score); err != nil {
			return nil, fmt.Errorf("failed to scan paper result: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return results, nil
}
