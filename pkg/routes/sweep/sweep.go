// Package sweep exposes the administrative re-evaluation trigger.
package sweep

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Runner executes re-evaluation sweeps.
type Runner interface {
	Run(ctx context.Context, sweepID string, profileIDs []string) error
	RunAll(ctx context.Context, sweepID string) error
}

// Handler serves sweep administration requests.
type Handler struct {
	runner Runner
	logger *zap.Logger
}

func NewHandler(runner Runner, logger *zap.Logger) *Handler {
	return &Handler{
		runner: runner,
		logger: logger,
	}
}

// Register registers sweep routes
func (h *Handler) Register(g *echo.Group) {
	g.POST("", h.Trigger)
}

// Request is the sweep trigger body. An empty profile list sweeps
// every registered profile.
type Request struct {
	ProfileIDs []string `json:"profile_ids"`
}

// Trigger starts a sweep in the background and returns its ID.
func (h *Handler) Trigger(c echo.Context) error {
	var req Request
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	sweepID := uuid.NewString()

	go func() {
		ctx := context.Background()
		var err error
		if len(req.ProfileIDs) > 0 {
			err = h.runner.Run(ctx, sweepID, req.ProfileIDs)
		} else {
			err = h.runner.RunAll(ctx, sweepID)
		}
		if err != nil {
			h.logger.Error("sweep failed", zap.String("sweep_id", sweepID), zap.Error(err))
		}
	}()

	return c.JSON(http.StatusAccepted, map[string]string{"sweep_id": sweepID})
}
