// Package match exposes the eligibility matching endpoint.
package match

import (
	"context"
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/setu-labs/sahayak/pkg/faults"
	"github.com/setu-labs/sahayak/pkg/models"
)

// Matcher runs a full match query for a profile.
type Matcher interface {
	Match(ctx context.Context, profile *models.Profile, query models.MatchQuery) (*models.MatchResult, error)
}

// ProfileStore loads citizen profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
}

// Handler serves match requests.
type Handler struct {
	matcher  Matcher
	profiles ProfileStore
	logger   *zap.Logger
}

func NewHandler(matcher Matcher, profiles ProfileStore, logger *zap.Logger) *Handler {
	return &Handler{
		matcher:  matcher,
		profiles: profiles,
		logger:   logger,
	}
}

// Register registers match routes
func (h *Handler) Register(g *echo.Group) {
	g.POST("", h.Match)
	g.GET("/:profile_id", h.MatchByID)
}

// Request is the match request body. Either an inline profile or a
// profile ID referencing a stored profile must be provided.
type Request struct {
	ProfileID string          `json:"profile_id"`
	Profile   *models.Profile `json:"profile"`
	Query     string          `json:"query"`
	Category  string          `json:"category"`
}

// Match runs a match query for the profile in the request body.
func (h *Handler) Match(c echo.Context) error {
	ctx := c.Request().Context()

	var req Request
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	profile := req.Profile
	if profile == nil {
		if req.ProfileID == "" {
			return httperror.NewHTTPError(http.StatusBadRequest, "profile or profile_id is required")
		}
		var err error
		profile, err = h.profiles.GetProfile(ctx, req.ProfileID)
		if err != nil {
			if errors.Is(err, faults.ErrNotFound) {
				return httperror.NewHTTPError(http.StatusNotFound, "profile not found")
			}
			return err
		}
	}

	result, err := h.matcher.Match(ctx, profile, models.MatchQuery{Text: req.Query, Category: req.Category})
	if err != nil {
		var verr *faults.ValidationError
		if errors.As(err, &verr) {
			return httperror.NewHTTPError(http.StatusBadRequest, verr.Error())
		}
		h.logger.Error("match query failed", zap.String("profile_id", profile.ID), zap.Error(err))
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// MatchByID runs a match query for a stored profile.
func (h *Handler) MatchByID(c echo.Context) error {
	ctx := c.Request().Context()

	profileID := c.Param("profile_id")
	if profileID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "profile_id is required")
	}

	profile, err := h.profiles.GetProfile(ctx, profileID)
	if err != nil {
		if errors.Is(err, faults.ErrNotFound) {
			return httperror.NewHTTPError(http.StatusNotFound, "profile not found")
		}
		return err
	}

	result, err := h.matcher.Match(ctx, profile, models.MatchQuery{
		Text:     c.QueryParam("q"),
		Category: c.QueryParam("category"),
	})
	if err != nil {
		var verr *faults.ValidationError
		if errors.As(err, &verr) {
			return httperror.NewHTTPError(http.StatusBadRequest, verr.Error())
		}
		h.logger.Error("match query failed", zap.String("profile_id", profileID), zap.Error(err))
		return err
	}

	return c.JSON(http.StatusOK, result)
}
