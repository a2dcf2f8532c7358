package httpapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"paperpulse/internal/domain"
)

const (
	defaultRelatedLimit = 10
	maxRelatedLimit     = 50
)

// GraphHandler serves knowledge-graph queries. All routes answer 503 when
// no graph store is configured.
type GraphHandler struct {
	graph domain.GraphStore
}

// NewGraphHandler creates a new GraphHandler. A nil graph is allowed.
func NewGraphHandler(graph domain.GraphStore) *GraphHandler {
	return &GraphHandler{graph: graph}
}

type relatedPaperResponse struct {
	PaperID   string `json:"paper_id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	Source    string `json:"source"`
	Relevance int64  `json:"relevance"`
}

// Related handles GET /v1/papers/:id/related. Neighbors are scored by
// shared concepts, citation hops and co-authors, strongest first.
func (h *GraphHandler) Related(c echo.Context) error {
	if h.graph == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "graph is not configured")
	}

	limit := defaultRelatedLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxRelatedLimit {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}

	paperID := c.Param("id")
	related, err := h.graph.RelatedPapers(c.Request().Context(), paperID, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to query related papers")
	}

	items := make([]relatedPaperResponse, 0, len(related))
	for _, r := range related {
		items = append(items, relatedPaperResponse{
			PaperID:   r.PaperID,
			Title:     r.Title,
			URL:       r.URL,
			Source:    r.Source,
			Relevance: r.Relevance,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"paper_id": paperID,
		"related":  items,
	})
}
