package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"zapnest/internal/core"
)

// MagicLinkSender mails a dashboard sign-in link.
type MagicLinkSender interface {
	SendMagicLink(ctx context.Context, email, link string) (string, error)
}

// SignInHandler serves the dashboard sign-in email endpoint.
type SignInHandler struct {
	sender    MagicLinkSender
	validator *core.Validator
	logger    *slog.Logger
}

// NewSignInHandler creates a SignInHandler.
func NewSignInHandler(sender MagicLinkSender, v *core.Validator, logger *slog.Logger) *SignInHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SignInHandler{sender: sender, validator: v, logger: logger}
}

// RegisterRoutes mounts the sign-in endpoint.
func (h *SignInHandler) RegisterRoutes(r chi.Router) {
	r.Post("/send-magic-link", h.SendMagicLink)
}

type sendMagicLinkRequest struct {
	Email     string `json:"email" validate:"required,email"`
	MagicLink string `json:"magicLink" validate:"required,url"`
}

type sendMagicLinkResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

// SendMagicLink emails the sign-in link minted by the dashboard's auth flow.
func (h *SignInHandler) SendMagicLink(w http.ResponseWriter, r *http.Request) {
	var req sendMagicLinkRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	id, err := h.sender.SendMagicLink(r.Context(), req.Email, req.MagicLink)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, sendMagicLinkResponse{Success: true, ID: id})
}
