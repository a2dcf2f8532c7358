package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"paperpulse/internal/domain"
)

type chunkRepository struct {
	pool *pgxpool.Pool
}

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(pool *pgxpool.Pool) domain.ChunkRepository {
	return &chunkRepository{pool: pool}
}

func (r *chunkRepository) BulkInsert(ctx context.Context, chunks []domain.PaperChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	rows := make([][]interface{}, len(chunks))
	for i, chunk := range chunks {
		rows[i] = []interface{}{
			chunk.PaperID,
			chunk.ChunkIndex,
			chunk.ChunkText,
			chunk.Embedding,
		}
	}

	_, err := executor(ctx, r.pool).CopyFrom(
		ctx,
		pgx.Identifier{"paper_chunks"},
		[]string{"paper_id", "chunk_index", "chunk_text", "embedding"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to bulk insert chunks: %w", err)
	}
	return nil
}

func (r *chunkRepository) SearchByEmbedding(ctx context.Context, userID string, query []float32, limit int) ([]domain.ChunkSearchResult, error) {
	sql := `
		SELECT c.paper_id, c.chunk_index, c.chunk_text,
		       p.title, p.url,
		       1 - (c.embedding <=> $2) AS score
		FROM paper_chunks c
		JOIN papers p ON p.canonical_id = c.paper_id
		JOIN feed_items f ON f.paper_id = c.paper_id
		WHERE f.user_id = $1
		ORDER BY c.embedding <=> $2
		LIMIT $3
	`
	rows, err := executor(ctx, r.pool).Query(ctx, sql, userID, pgvector.NewVector(query), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	var results []domain.ChunkSearchResult
	for rows.Next() {
		var res domain.ChunkSearchResult
		if err := rows.Scan(&res.Chunk.PaperID, &res.Chunk.ChunkIndex, &res.Chunk.ChunkText,
			&res.Title, &res.URL, &res.Score); err != nil {
			return nil, fmt.Errorf("failed to scan chunk result: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return results, nil
}
