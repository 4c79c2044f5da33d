package chat

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/khata/internal/http/auth"
	"github.com/MrJamesThe3rd/khata/internal/http/respond"
	"github.com/MrJamesThe3rd/khata/internal/idempotency"
	"github.com/MrJamesThe3rd/khata/internal/workflow"
)

type Engine interface {
	Handle(ctx context.Context, userKey, text string) workflow.Response
	Confirm(ctx context.Context, userKey string, confirmed bool, actionID *uuid.UUID) workflow.Response
}

type Handler struct {
	engine   Engine
	seen     idempotency.Store
	dedupTTL time.Duration
	log      *zap.Logger
}

func NewHandler(engine Engine, seen idempotency.Store, dedupTTL time.Duration, log *zap.Logger) *Handler {
	return &Handler{engine: engine, seen: seen, dedupTTL: dedupTTL, log: log}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/chat", h.chat)
	r.Post("/confirm", h.decide(true))
	r.Post("/cancel", h.decide(false))
}

type chatRequest struct {
	User      string `json:"user" validate:"max=128"`
	Message   string `json:"message" validate:"required,max=2000"`
	MessageID string `json:"message_id" validate:"max=128"`
}

type decisionRequest struct {
	User     string `json:"user" validate:"max=128"`
	ActionID string `json:"action_id" validate:"omitempty,uuid"`
}

type chatResponse struct {
	workflow.Response
	Duplicate bool `json:"duplicate,omitempty"`
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !respond.Decode(w, r, &req) {
		return
	}

	user, ok := userKey(w, r, req.User)
	if !ok {
		return
	}

	if req.MessageID != "" && h.seen != nil {
		first, err := h.seen.MarkProcessed(r.Context(), user+":"+req.MessageID, h.dedupTTL)
		if err != nil {
			h.log.Warn("message dedupe unavailable", zap.String("user", user), zap.Error(err))
		} else if !first {
			h.log.Info("duplicate message ignored", zap.String("user", user), zap.String("message_id", req.MessageID))
			respond.JSON(w, http.StatusOK, chatResponse{Duplicate: true})

			return
		}
	}

	respond.JSON(w, http.StatusOK, chatResponse{Response: h.engine.Handle(r.Context(), user, req.Message)})
}

func (h *Handler) decide(confirmed bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req decisionRequest
		if !respond.Decode(w, r, &req) {
			return
		}

		user, ok := userKey(w, r, req.User)
		if !ok {
			return
		}

		var actionID *uuid.UUID

		if req.ActionID != "" {
			id := uuid.MustParse(req.ActionID)
			actionID = &id
		}

		respond.JSON(w, http.StatusOK, chatResponse{Response: h.engine.Confirm(r.Context(), user, confirmed, actionID)})
	}
}

// userKey prefers the authenticated subject over the user named in the body.
func userKey(w http.ResponseWriter, r *http.Request, named string) (string, bool) {
	if s := auth.Subject(r.Context()); s != "" {
		return s, true
	}

	if named == "" {
		respond.Error(w, http.StatusBadRequest, "user is required")
		return "", false
	}

	return named, true
}
