package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_bookshop/internal/domain"
	"github.com/fjod/go_bookshop/internal/service"
	"go.uber.org/zap"
)

type ProfileManager interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	Update(ctx context.Context, userID string, in service.ProfileUpdate) (*domain.Profile, error)
}

type ProfileHandler struct {
	profiles ProfileManager
	timeout  time.Duration
	logger   *zap.Logger
}

func NewProfileHandler(profiles ProfileManager, timeout time.Duration, l *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		profiles: profiles,
		timeout:  timeout,
		logger:   l,
	}
}

type UpdateProfileRequestDTO struct {
	Phone      string `json:"phone" validate:"max=20"`
	Address    string `json:"address" validate:"max=500"`
	PictureRef string `json:"picture_ref" validate:"omitempty,url,max=500"`
}

func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := getUserFromContext(r.Context())
	if user.ID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	profile, err := h.profiles.Get(ctx, user.ID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := getUserFromContext(r.Context())
	if user.ID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req UpdateProfileRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	profile, err := h.profiles.Update(ctx, user.ID, service.ProfileUpdate{
		Phone:      req.Phone,
		Address:    req.Address,
		PictureRef: req.PictureRef,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, profile)
}
