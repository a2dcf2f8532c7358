package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"paperpulse/internal/usecase"
)

// PipelineHandler exposes manual pipeline control.
type PipelineHandler struct {
	pipeline usecase.PipelineUsecase
	logger   *slog.Logger
}

// NewPipelineHandler creates a new PipelineHandler.
func NewPipelineHandler(pipeline usecase.PipelineUsecase, logger *slog.Logger) *PipelineHandler {
	return &PipelineHandler{pipeline: pipeline, logger: logger}
}

// Run handles POST /v1/pipeline/run. The run executes in the background;
// a request while one is already in flight gets 409 with the live status.
func (h *PipelineHandler) Run(c echo.Context) error {
	status := h.pipeline.Status()
	if status.State == usecase.PipelineRunning {
		return c.JSON(http.StatusConflict, status)
	}

	go func() {
		if _, err := h.pipeline.Run(context.Background()); err != nil &&
			!errors.Is(err, usecase.ErrPipelineRunning) {
			h.logger.Error("manual_pipeline_run_failed", slog.String("error", err.Error()))
		}
	}()

	return c.JSON(http.StatusAccepted, map[string]string{"state": string(usecase.PipelineRunning)})
}

// Status handles GET /v1/pipeline/status.
func (h *PipelineHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, h.pipeline.Status())
}
