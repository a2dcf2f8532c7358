package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"paperpulse/internal/domain"
	"paperpulse/internal/usecase"
)

// ChatHandler serves conversations and the ask flow.
type ChatHandler struct {
	chats usecase.ChatUsecase
	ask   usecase.AskUsecase
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chats usecase.ChatUsecase, ask usecase.AskUsecase) *ChatHandler {
	return &ChatHandler{chats: chats, ask: ask}
}

type createChatRequest struct {
	UserID string `json:"user_id"`
}

type updateChatRequest struct {
	Title   *string `json:"title,omitempty"`
	Starred *bool   `json:"starred,omitempty"`
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

type askRequest struct {
	UserID   string `json:"user_id"`
	Question string `json:"question"`
}

type chatResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Starred   bool      `json:"starred"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type messageResponse struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Sources   []string  `json:"sources,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type sourceResponse struct {
	PaperID string `json:"paper_id"`
	Title   string `json:"title"`
	URL     string `json:"url,omitempty"`
}

type askResponse struct {
	Answer  string           `json:"answer"`
	Intent  string           `json:"intent"`
	Empty   bool             `json:"empty"`
	Sources []sourceResponse `json:"sources,omitempty"`
}

func toChatResponse(chat domain.Chat) chatResponse {
	return chatResponse{
		ID:        chat.ID.String(),
		UserID:    chat.UserID,
		Title:     chat.Title,
		Starred:   chat.Starred,
		CreatedAt: chat.CreatedAt,
		UpdatedAt: chat.UpdatedAt,
	}
}

func toMessageResponse(msg domain.ChatMessage) messageResponse {
	return messageResponse{
		ID:        msg.ID.String(),
		Role:      msg.Role,
		Content:   msg.Content,
		Sources:   msg.Sources,
		CreatedAt: msg.CreatedAt,
	}
}

func toSourceResponses(entries []domain.ContextEntry) []sourceResponse {
	if len(entries) == 0 {
		return nil
	}
	sources := make([]sourceResponse, len(entries))
	for i, e := range entries {
		sources[i] = sourceResponse{PaperID: e.PaperID, Title: e.Title, URL: e.URL}
	}
	return sources
}

func chatIDParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid chat id")
	}
	return id, nil
}

// Create handles POST /v1/chats.
func (h *ChatHandler) Create(c echo.Context) error {
	var req createChatRequest
	if err := c.Bind(&req); err != nil || req.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	chat, err := h.chats.CreateChat(c.Request().Context(), req.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create chat")
	}
	return c.JSON(http.StatusCreated, toChatResponse(*chat))
}

// List handles GET /v1/chats?user_id=.
func (h *ChatHandler) List(c echo.Context) error {
	userID := c.QueryParam("user_id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	chats, err := h.chats.ListChats(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list chats")
	}

	out := make([]chatResponse, 0, len(chats))
	for _, chat := range chats {
		out = append(out, toChatResponse(chat))
	}
	return c.JSON(http.StatusOK, map[string]any{"chats": out})
}

// Get handles GET /v1/chats/:id, returning the chat with its messages.
func (h *ChatHandler) Get(c echo.Context) error {
	chatID, err := chatIDParam(c)
	if err != nil {
		return err
	}

	chat, messages, err := h.chats.GetChat(c.Request().Context(), chatID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load chat")
	}
	if chat == nil {
		return echo.NewHTTPError(http.StatusNotFound, "chat not found")
	}

	out := make([]messageResponse, 0, len(messages))
	for _, msg := range messages {
		out = append(out, toMessageResponse(msg))
	}
	return c.JSON(http.StatusOK, map[string]any{
		"chat":     toChatResponse(*chat),
		"messages": out,
	})
}

// Update handles PATCH /v1/chats/:id.
func (h *ChatHandler) Update(c echo.Context) error {
	chatID, err := chatIDParam(c)
	if err != nil {
		return err
	}

	var req updateChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Title == nil && req.Starred == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "nothing to update")
	}

	if err := h.chats.UpdateChat(c.Request().Context(), chatID, req.Title, req.Starred); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "chat not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete handles DELETE /v1/chats/:id.
func (h *ChatHandler) Delete(c echo.Context) error {
	chatID, err := chatIDParam(c)
	if err != nil {
		return err
	}

	if err := h.chats.DeleteChat(c.Request().Context(), chatID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete chat")
	}
	return c.NoContent(http.StatusNoContent)
}

// SendMessage handles POST /v1/chats/:id/messages.
func (h *ChatHandler) SendMessage(c echo.Context) error {
	chatID, err := chatIDParam(c)
	if err != nil {
		return err
	}

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil || req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}

	result, err := h.chats.SendMessage(c.Request().Context(), chatID, req.Content)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to answer message")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"chat":    toChatResponse(result.Chat),
		"message": toMessageResponse(result.Message),
		"intent":  string(result.Intent),
	})
}

// Ask handles POST /v1/ask, a one-shot question outside any chat.
func (h *ChatHandler) Ask(c echo.Context) error {
	var req askRequest
	if err := c.Bind(&req); err != nil || req.UserID == "" || req.Question == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id and question are required")
	}

	result, err := h.ask.Execute(c.Request().Context(), usecase.AskInput{
		UserID:   req.UserID,
		Question: req.Question,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to answer question")
	}

	return c.JSON(http.StatusOK, askResponse{
		Answer:  result.Answer.Text,
		Intent:  string(result.Intent),
		Empty:   result.Empty,
		Sources: toSourceResponses(result.Answer.Sources),
	})
}
