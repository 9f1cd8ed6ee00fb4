package handlers

import (
	"context"
	"net/http"

	"github.com/AnshRaj112/inkwell-backend/internal/models"
	"github.com/AnshRaj112/inkwell-backend/internal/services"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ProfileAPI interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, in services.UpdateProfileInput) (*models.Profile, error)
}

type ProfileHandler struct {
	profiles       ProfileAPI
	maxUploadBytes int64
	log            *zap.Logger
}

func NewProfileHandler(profiles ProfileAPI, maxUploadBytes int64, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, maxUploadBytes: maxUploadBytes, log: log}
}

func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.profiles.GetProfile(r.Context(), currentUser(r))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respond(w, http.StatusOK, "Profile retrieved", p)
}

// UpdateProfile accepts the profile form, optionally with an avatar file.
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	f, err := parseForm(r, h.maxUploadBytes)
	if err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	p, err := h.profiles.UpdateProfile(r.Context(), currentUser(r), services.UpdateProfileInput{
		Name:        f.string("name"),
		Gender:      f.string("gender"),
		Country:     f.string("country"),
		DateOfBirth: f.string("date_of_birth"),
		Avatar:      f.upload("avatar"),
	})
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respond(w, http.StatusOK, "Profile updated", p)
}
