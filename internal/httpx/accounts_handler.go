package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-marketplace/internal/accounts"
)

type AccountsHandler struct {
	Repo   *accounts.Repo
	Resets *accounts.ResetStore
}

func (h *AccountsHandler) Register(r *chi.Mux) {
	r.Post("/api/accounts", h.createAccount)
	r.Post("/api/accounts/password-reset", h.requestReset)
	r.Post("/api/accounts/password-reset/confirm", h.confirmReset)
}

type createAccountReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *AccountsHandler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Name == "" || req.Email == "" || len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "name, email and a password of 8+ chars are required")
		return
	}
	role := accounts.Role(req.Role)
	if req.Role == "" {
		role = accounts.RoleBuyer
	}
	if !accounts.ValidRole(role) {
		writeError(w, http.StatusBadRequest, "invalid role")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := h.Repo.CreateUser(ctx, req.Name, req.Email, req.Password, role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

type requestResetReq struct {
	Email string `json:"email"`
}

func (h *AccountsHandler) requestReset(w http.ResponseWriter, r *http.Request) {
	var req requestResetReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := h.Repo.GetByEmail(ctx, req.Email)
	if errors.Is(err, accounts.ErrNotFound) {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	token, err := h.Resets.Issue(ctx, u.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// no mailer in this stack; the token is returned to the caller
	writeJSON(w, http.StatusOK, map[string]string{"resetToken": token})
}

type confirmResetReq struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (h *AccountsHandler) confirmReset(w http.ResponseWriter, r *http.Request) {
	var req confirmResetReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Token == "" || len(req.NewPassword) < 8 {
		writeError(w, http.StatusBadRequest, "token and a password of 8+ chars are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Resets.Consume(ctx, req.Token)
	if errors.Is(err, accounts.ErrTokenInvalid) {
		writeError(w, http.StatusBadRequest, "invalid or expired token")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := h.Repo.SetPassword(ctx, userID, req.NewPassword); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
