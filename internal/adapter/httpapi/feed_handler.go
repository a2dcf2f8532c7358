package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"paperpulse/internal/domain"
)

const defaultFeedLimit = 50

// FeedHandler serves the personalized feed.
type FeedHandler struct {
	feedRepo domain.FeedRepository
}

// NewFeedHandler creates a new FeedHandler.
func NewFeedHandler(feedRepo domain.FeedRepository) *FeedHandler {
	return &FeedHandler{feedRepo: feedRepo}
}

type feedItemResponse struct {
	ItemID         string    `json:"item_id"`
	PaperID        string    `json:"paper_id"`
	Title          string    `json:"title"`
	Authors        []string  `json:"authors"`
	Abstract       string    `json:"abstract"`
	Summary        string    `json:"summary,omitempty"`
	URL            string    `json:"url"`
	Source         string    `json:"source"`
	PublishedDate  time.Time `json:"published_date"`
	RelevanceScore float64   `json:"relevance_score"`
	IsSaved        bool      `json:"is_saved"`
	AddedAt        time.Time `json:"added_at"`
}

type setSavedRequest struct {
	Saved bool `json:"saved"`
}

// List handles GET /v1/users/:id/feed.
func (h *FeedHandler) List(c echo.Context) error {
	limit := defaultFeedLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}

	entries, err := h.feedRepo.ListForUser(c.Request().Context(), c.Param("id"), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load feed")
	}

	items := make([]feedItemResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, feedItemResponse{
			ItemID:         e.Item.ID.String(),
			PaperID:        e.Paper.CanonicalID,
			Title:          e.Paper.Title,
			Authors:        e.Paper.Authors,
			Abstract:       e.Paper.Abstract,
			Summary:        e.Paper.Summary,
			URL:            e.Paper.URL,
			Source:         e.Paper.Source,
			PublishedDate:  e.Paper.PublishedDate,
			RelevanceScore: e.Item.RelevanceScore,
			IsSaved:        e.Item.IsSaved,
			AddedAt:        e.Item.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// SetSaved handles PATCH /v1/feed/:itemID/saved.
func (h *FeedHandler) SetSaved(c echo.Context) error {
	itemID, err := uuid.Parse(c.Param("itemID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid feed item id")
	}

	var req setSavedRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.feedRepo.SetSaved(c.Request().Context(), itemID, req.Saved); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "feed item not found")
	}
	return c.JSON(http.StatusOK, map[string]bool{"saved": req.Saved})
}
