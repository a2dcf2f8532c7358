package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"paperpulse/internal/domain"
)

type chatRepository struct {
	pool *pgxpool.Pool
}

// NewChatRepository creates a new ChatRepository.
func NewChatRepository(pool *pgxpool.Pool) domain.ChatRepository {
	return &chatRepository{pool: pool}
}

func (r *chatRepository) CreateChat(ctx context.Context, chat *domain.Chat) error {
	query := `
		INSERT INTO chats (id, user_id, title, starred, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
	`
	_, err := executor(ctx, r.pool).Exec(ctx, query, chat.ID, chat.UserID, chat.Title, chat.Starred)
	if err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}
	return nil
}

func (r *chatRepository) GetChat(ctx context.Context, chatID uuid.UUID) (*domain.Chat, error) {
	query := `
		SELECT id, user_id, title, starred, created_at, updated_at
		FROM chats
		WHERE id = $1
	`
	row := executor(ctx, r.pool).QueryRow(ctx, query, chatID)

	var c domain.Chat
	err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.Starred, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}
	return &c, nil
}

func (r *chatRepository) ListChats(ctx context.Context, userID string) ([]domain.Chat, error) {
	query := `
		SELECT id, user_id, title, starred, created_at, updated_at
		FROM chats
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`
	rows, err := executor(ctx, r.pool).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer rows.Close()

	var chats []domain.Chat
	for rows.Next() {
		var c domain.Chat
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.Starred, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		chats = append(chats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return chats, nil
}

// UpdateChat changes the title and/or starred flag; nil fields are left
// untouched.
func (r *chatRepository) UpdateChat(ctx context.Context, chatID uuid.UUID, title *string, starred *bool) error {
	query := `
		UPDATE chats
		SET title = COALESCE($2, title),
		    starred = COALESCE($3, starred),
		    updated_at = now()
		WHERE id = $1
	`
	tag, err := executor(ctx, r.pool).Exec(ctx, query, chatID, title, starred)
	if err != nil {
		return fmt.Errorf("failed to update chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("chat not found: %s", chatID)
	}
	return nil
}

func (r *chatRepository) DeleteChat(ctx context.Context, chatID uuid.UUID) error {
	// chat_messages rows go with the chat via ON DELETE CASCADE
	tag, err := executor(ctx, r.pool).Exec(ctx, `DELETE FROM chats WHERE id = $1`, chatID)
	if err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("chat not found: %s", chatID)
	}
	return nil
}

func (r *chatRepository) AddMessage(ctx context.Context, msg *domain.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (id, chat_id, role, content, sources, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
	`
	_, err := executor(ctx, r.pool).Exec(ctx, query,
		msg.ID, msg.ChatID, msg.Role, msg.Content, msg.Sources)
	if err != nil {
		return fmt.Errorf("failed to add message: %w", err)
	}

	_, err = executor(ctx, r.pool).Exec(ctx,
		`UPDATE chats SET updated_at = now() WHERE id = $1`, msg.ChatID)
	if err != nil {
		return fmt.Errorf("failed to touch chat: %w", err)
	}
	return nil
}

func (r *chatRepository) ListMessages(ctx context.Context, chatID uuid.UUID) ([]domain.ChatMessage, error) {
	query := `
		SELECT id, chat_id, role, content, sources, created_at
		FROM chat_messages
		WHERE chat_id = $1
		ORDER BY created_at ASC
	`
	rows, err := executor(ctx, r.pool).Query(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Role, &m.Content, &m.Sources, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return messages, nil
}
