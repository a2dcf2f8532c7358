package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"paperpulse/internal/domain"
)

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) domain.UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, email, domains, interest_text, profile, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
	`
	_, err := executor(ctx, r.pool).Exec(ctx, query,
		user.ID, user.Email, user.Domains, user.InterestText, user.Profile)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT id, email, domains, interest_text, profile, created_at
		FROM users
		WHERE id = $1
	`
	row := executor(ctx, r.pool).QueryRow(ctx, query, userID)

	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.Domains, &u.InterestText, &u.Profile, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (r *userRepository) List(ctx context.Context) ([]domain.User, error) {
	query := `
		SELECT id, email, domains, interest_text, profile, created_at
		FROM users
		ORDER BY created_at ASC
	`
	rows, err := executor(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Domains, &u.InterestText, &u.Profile, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return users, nil
}

func (r *userRepository) UpdateInterests(ctx context.Context, userID, interestText string, domains []string) error {
	query := `
		UPDATE users
		SET interest_text = $2,
		    domains = CASE WHEN cardinality($3::text[]) > 0 THEN $3 ELSE domains END
		WHERE id = $1
	`
	tag, err := executor(ctx, r.pool).Exec(ctx, query, userID, interestText, domains)
	if err != nil {
		return fmt.Errorf("failed to update interests: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}
	return nil
}

func (r *userRepository) SaveProfile(ctx context.Context, userID string, profile domain.QueryProfile) error {
	query := `
		UPDATE users
		SET profile = $2
		WHERE id = $1
	`
	tag, err := executor(ctx, r.pool).Exec(ctx, query, userID, profile)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}
	return nil
}
