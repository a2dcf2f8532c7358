package httpapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"paperpulse/internal/domain"
	"paperpulse/internal/usecase"
)

// UserHandler serves onboarding and profile endpoints.
type UserHandler struct {
	users usecase.UserUsecase
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users usecase.UserUsecase) *UserHandler {
	return &UserHandler{users: users}
}

type createUserRequest struct {
	Email        string   `json:"email"`
	Domains      []string `json:"domains"`
	InterestText string   `json:"interest_text"`
}

type updateInterestsRequest struct {
	InterestText string   `json:"interest_text"`
	Domains      []string `json:"domains,omitempty"`
}

type userResponse struct {
	ID           string               `json:"id"`
	Email        string               `json:"email"`
	Domains      []string             `json:"domains"`
	InterestText string               `json:"interest_text"`
	Profile      *domain.QueryProfile `json:"profile,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:           u.ID,
		Email:        u.Email,
		Domains:      u.Domains,
		InterestText: u.InterestText,
		Profile:      u.Profile,
		CreatedAt:    u.CreatedAt,
	}
}

// Create handles POST /v1/users.
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	user, err := h.users.CreateUser(c.Request().Context(), usecase.CreateUserInput{
		Email:        req.Email,
		Domains:      req.Domains,
		InterestText: req.InterestText,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, toUserResponse(user))
}

// Get handles GET /v1/users/:id.
func (h *UserHandler) Get(c echo.Context) error {
	user, err := h.users.GetUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load user")
	}
	if user == nil {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// UpdateInterests handles PUT /v1/users/:id/interests.
func (h *UserHandler) UpdateInterests(c echo.Context) error {
	var req updateInterestsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	user, err := h.users.UpdateInterests(c.Request().Context(), c.Param("id"), req.InterestText, req.Domains)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if user == nil {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}
