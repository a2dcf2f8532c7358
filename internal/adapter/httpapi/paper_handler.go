package httpapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"paperpulse/internal/domain"
)

// PaperHandler serves individual papers.
type PaperHandler struct {
	paperRepo domain.PaperRepository
}

// NewPaperHandler creates a new PaperHandler.
func NewPaperHandler(paperRepo domain.PaperRepository) *PaperHandler {
	return &PaperHandler{paperRepo: paperRepo}
}

type paperResponse struct {
	PaperID       string    `json:"paper_id"`
	Title         string    `json:"title"`
	Authors       []string  `json:"authors"`
	Abstract      string    `json:"abstract"`
	Summary       string    `json:"summary,omitempty"`
	URL           string    `json:"url"`
	Source        string    `json:"source"`
	DOI           string    `json:"doi,omitempty"`
	PublishedDate time.Time `json:"published_date"`
	HasFullText   bool      `json:"has_full_text"`
}

// Get handles GET /v1/papers/:id. Canonical IDs may contain slashes
// (old-style arXiv IDs), so callers URL-encode them.
func (h *PaperHandler) Get(c echo.Context) error {
	paper, err := h.paperRepo.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load paper")
	}
	if paper == nil {
		return echo.NewHTTPError(http.StatusNotFound, "paper not found")
	}

	return c.JSON(http.StatusOK, paperResponse{
		PaperID:       paper.CanonicalID,
		Title:         paper.Title,
		Authors:       paper.Authors,
		Abstract:      paper.Abstract,
		Summary:       paper.Summary,
		URL:           paper.URL,
		Source:        paper.Source,
		DOI:           paper.DOI,
		PublishedDate: paper.PublishedDate,
		HasFullText:   paper.FullText != "",
	})
}
