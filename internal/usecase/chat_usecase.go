package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"paperpulse/internal/domain"
)

// maxHistoryTurns bounds how much prior conversation is fed back to the
// model on each turn.
const maxHistoryTurns = 6

// SendMessageResult is one completed question/answer exchange.
type SendMessageResult struct {
	Chat    domain.Chat
	Message domain.ChatMessage
	Intent  domain.Intent
}

// ChatUsecase manages persistent conversations. SendMessage runs the full
// exchange: persist the user's message, answer it over the user's corpus,
// persist the answer with its cited papers.
type ChatUsecase interface {
	CreateChat(ctx context.Context, userID string) (*domain.Chat, error)
	ListChats(ctx context.Context, userID string) ([]domain.Chat, error)
	GetChat(ctx context.Context, chatID uuid.UUID) (*domain.Chat, []domain.ChatMessage, error)
	UpdateChat(ctx context.Context, chatID uuid.UUID, title *string, starred *bool) error
	DeleteChat(ctx context.Context, chatID uuid.UUID) error
	SendMessage(ctx context.Context, chatID uuid.UUID, content string) (*SendMessageResult, error)
}

type chatUsecase struct {
	chatRepo domain.ChatRepository
	ask      AskUsecase
	llm      domain.CompletionClient
	logger   *slog.Logger
}

// NewChatUsecase creates a new ChatUsecase.
func NewChatUsecase(
	chatRepo domain.ChatRepository,
	ask AskUsecase,
	llm domain.CompletionClient,
	logger *slog.Logger,
) ChatUsecase {
	return &chatUsecase{
		chatRepo: chatRepo,
		ask:      ask,
		llm:      llm,
		logger:   logger,
	}
}

func (u *chatUsecase) CreateChat(ctx context.Context, userID string) (*domain.Chat, error) {
	chat := &domain.Chat{
		ID:     uuid.New(),
		UserID: userID,
		Title:  "New chat",
	}
	if err := u.chatRepo.CreateChat(ctx, chat); err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}
	return chat, nil
}

func (u *chatUsecase) ListChats(ctx context.Context, userID string) ([]domain.Chat, error) {
	return u.chatRepo.ListChats(ctx, userID)
}

func (u *chatUsecase) GetChat(ctx context.Context, chatID uuid.UUID) (*domain.Chat, []domain.ChatMessage, error) {
	chat, err := u.chatRepo.GetChat(ctx, chatID)
	if err != nil {
		return nil, nil, err
	}
	if chat == nil {
		return nil, nil, nil
	}
	messages, err := u.chatRepo.ListMessages(ctx, chatID)
	if err != nil {
		return nil, nil, err
	}
	return chat, messages, nil
}

func (u *chatUsecase) UpdateChat(ctx context.Context, chatID uuid.UUID, title *string, starred *bool) error {
	return u.chatRepo.UpdateChat(ctx, chatID, title, starred)
}

func (u *chatUsecase) DeleteChat(ctx context.Context, chatID uuid.UUID) error {
	return u.chatRepo.DeleteChat(ctx, chatID)
}

func (u *chatUsecase) SendMessage(ctx context.Context, chatID uuid.UUID, content string) (*SendMessageResult, error) {
	if content == "" {
		return nil, fmt.Errorf("message content is empty")
	}

	chat, err := u.chatRepo.GetChat(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat: %w", err)
	}
	if chat == nil {
		return nil, fmt.Errorf("chat %s not found", chatID)
	}

	prior, err := u.chatRepo.ListMessages(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	userMsg := &domain.ChatMessage{
		ID:      uuid.New(),
		ChatID:  chatID,
		Role:    "user",
		Content: content,
	}
	if err := u.chatRepo.AddMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	if len(prior) == 0 {
		u.nameChat(ctx, chat, content)
	}

	result, err := u.ask.Execute(ctx, AskInput{
		UserID:   chat.UserID,
		Question: content,
		History:  historyFromMessages(prior),
	})
	if err != nil {
		return nil, err
	}

	aiMsg := &domain.ChatMessage{
		ID:      uuid.New(),
		ChatID:  chatID,
		Role:    "ai",
		Content: result.Answer.Text,
		Sources: sourceIDs(result.Answer.Sources),
	}
	if err := u.chatRepo.AddMessage(ctx, aiMsg); err != nil {
		return nil, fmt.Errorf("failed to store answer: %w", err)
	}

	return &SendMessageResult{Chat: *chat, Message: *aiMsg, Intent: result.Intent}, nil
}

// nameChat derives the chat title from its first message. Best effort: the
// chat keeps its placeholder title on failure.
func (u *chatUsecase) nameChat(ctx context.Context, chat *domain.Chat, firstMessage string) {
	titleCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	title, err := u.llm.GenerateTitle(titleCtx, firstMessage)
	if err != nil || title == "" {
		return
	}
	if err := u.chatRepo.UpdateChat(ctx, chat.ID, &title, nil); err != nil {
		u.logger.Warn("chat_title_update_failed",
			slog.String("chat_id", chat.ID.String()),
			slog.String("error", err.Error()))
		return
	}
	chat.Title = title
}

func historyFromMessages(messages []domain.ChatMessage) []domain.ChatTurn {
	if len(messages) > maxHistoryTurns {
		messages = messages[len(messages)-maxHistoryTurns:]
	}
	turns := make([]domain.ChatTurn, len(messages))
	for i, m := range messages {
		turns[i] = domain.ChatTurn{Role: m.Role, Content: m.Content}
	}
	return turns
}

func sourceIDs(entries []domain.ContextEntry) []string {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.PaperID
	}
	return ids
}
