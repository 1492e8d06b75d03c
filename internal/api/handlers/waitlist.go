package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"zapnest/internal/core"
	"zapnest/internal/payments"
)

// WaitlistJoiner records a waitlist signup.
type WaitlistJoiner interface {
	Join(ctx context.Context, email, tier, referralCode string) (payments.SideEffect, error)
}

// WaitlistHandler serves the pre-launch signup form.
type WaitlistHandler struct {
	joiner    WaitlistJoiner
	validator *core.Validator
	logger    *slog.Logger
}

// NewWaitlistHandler creates a WaitlistHandler.
func NewWaitlistHandler(joiner WaitlistJoiner, v *core.Validator, logger *slog.Logger) *WaitlistHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WaitlistHandler{joiner: joiner, validator: v, logger: logger}
}

// RegisterRoutes mounts the waitlist endpoint.
func (h *WaitlistHandler) RegisterRoutes(r chi.Router) {
	r.Post("/waitlist", h.Join)
}

type joinWaitlistRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Tier         string `json:"tier" validate:"omitempty,tier"`
	ReferralCode string `json:"referral_code" validate:"omitempty,max=16"`
}

type joinWaitlistResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Join inserts the signup and sends the founder welcome email. A failed
// email does not fail the signup.
func (h *WaitlistHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req joinWaitlistRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	effect, err := h.joiner.Join(r.Context(), req.Email, req.Tier, req.ReferralCode)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if effect.Err != nil {
		h.logger.WarnContext(r.Context(), "welcome email not delivered", "error", effect.Err.Error())
	}

	core.JSON(w, r, http.StatusCreated, joinWaitlistResponse{
		Success: true,
		Message: "You're on the list! Check your inbox for your founder welcome.",
	})
}
