package handlers

import (
	"context"
	"net/http"

	"github.com/AnshRaj112/inkwell-backend/internal/middleware"
	"github.com/AnshRaj112/inkwell-backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxAuthBody = 1 << 16

type AccountAPI interface {
	Signup(ctx context.Context, username, password, name string) (*models.User, string, error)
	Signin(ctx context.Context, username, password string) (*models.User, string, error)
	Signout(ctx context.Context, token string) error
	Me(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

// AuthResponse is returned by signup and signin.
type AuthResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

type AuthHandler struct {
	accounts AccountAPI
	log      *zap.Logger
}

func NewAuthHandler(accounts AccountAPI, log *zap.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, log: log}
}

// Signup creates an account and returns a session token.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	f, err := parseForm(r, maxAuthBody)
	if err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	u, token, err := h.accounts.Signup(r.Context(), f.string("username"), f.string("password"), f.string("name"))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respond(w, http.StatusCreated, "Account created", AuthResponse{User: u, Token: token})
}

func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	f, err := parseForm(r, maxAuthBody)
	if err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	u, token, err := h.accounts.Signin(r.Context(), f.string("username"), f.string("password"))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respond(w, http.StatusOK, "Signed in", AuthResponse{User: u, Token: token})
}

func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.Signout(r.Context(), middleware.SessionToken(r.Context())); err != nil {
		respondError(w, h.log, err)
		return
	}
	respond(w, http.StatusOK, "Signed out", nil)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.accounts.Me(r.Context(), currentUser(r))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respond(w, http.StatusOK, "User retrieved", u)
}
