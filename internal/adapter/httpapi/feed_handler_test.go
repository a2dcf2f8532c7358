package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"paperpulse/internal/domain"
)

// MockFeedRepository
type MockFeedRepository struct {
	mock.Mock
}

func (m *MockFeedRepository) Insert(ctx context.Context, item domain.FeedItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockFeedRepository) ListForUser(ctx context.Context, userID string, limit int) ([]domain.FeedEntry, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FeedEntry), args.Error(1)
}

func (m *MockFeedRepository) Titles(ctx context.Context, userID string) (map[string]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockFeedRepository) SetSaved(ctx context.Context, itemID uuid.UUID, saved bool) error {
	args := m.Called(ctx, itemID, saved)
	return args.Error(0)
}

func feedEntry(paperID string, score float64, addedAt time.Time) domain.FeedEntry {
	return domain.FeedEntry{
		Item: domain.FeedItem{
			ID:             uuid.New(),
			UserID:         "user-1",
			PaperID:        paperID,
			RelevanceScore: score,
			CreatedAt:      addedAt,
		},
		Paper: domain.Paper{CanonicalID: paperID, Title: "Paper " + paperID},
	}
}

func TestFeedList_MostRelevantFirst(t *testing.T) {
	feedRepo := new(MockFeedRepository)
	h := NewFeedHandler(feedRepo)

	// an older, more relevant paper outranks a fresh low scorer
	now := time.Now()
	feedRepo.On("ListForUser", mock.Anything, "user-1", 50).Return([]domain.FeedEntry{
		feedEntry("2301.00001", 0.95, now.Add(-48*time.Hour)),
		feedEntry("2301.00002", 0.80, now),
		feedEntry("2301.00003", 0.40, now),
	}, nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/users/:id/feed")
	c.SetParamNames("id")
	c.SetParamValues("user-1")

	require.NoError(t, h.List(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Items []struct {
			PaperID        string  `json:"paper_id"`
			RelevanceScore float64 `json:"relevance_score"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Items, 3)

	assert.Equal(t, "2301.00001", body.Items[0].PaperID)
	for i := 1; i < len(body.Items); i++ {
		assert.GreaterOrEqual(t, body.Items[i-1].RelevanceScore, body.Items[i].RelevanceScore)
	}
}

func TestFeedList_RejectsInvalidLimit(t *testing.T) {
	h := NewFeedHandler(new(MockFeedRepository))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?limit=abc", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.List(c)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}
