package reminder

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/khata/internal/http/respond"
	"github.com/MrJamesThe3rd/khata/internal/reminder"
)

type Handler struct {
	svc *reminder.Service
	log *zap.Logger
}

func NewHandler(svc *reminder.Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/{id}/complete", h.complete)
}

type reminderResponse struct {
	ID         uuid.UUID       `json:"id"`
	CustomerID uuid.UUID       `json:"customer_id"`
	Message    string          `json:"message"`
	Status     reminder.Status `json:"status"`
	NextDue    time.Time       `json:"next_due"`
	Overdue    bool            `json:"overdue"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var filter reminder.ListFilter

	q := r.URL.Query()

	if s := q.Get("status"); s != "" {
		status := reminder.Status(s)
		filter.Status = &status
	}

	if s := q.Get("customer_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid customer_id")
			return
		}

		filter.CustomerID = &id
	}

	list, err := h.svc.List(r.Context(), filter)
	if err != nil {
		h.log.Error("listing reminders", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")

		return
	}

	now := time.Now()

	resp := make([]reminderResponse, len(list))
	for i, rem := range list {
		resp[i] = reminderResponse{
			ID:         rem.ID,
			CustomerID: rem.CustomerID,
			Message:    rem.Message,
			Status:     rem.Status,
			NextDue:    rem.NextDue,
			Overdue:    rem.Status == reminder.StatusPending && rem.NextDue.Before(now),
		}
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.svc.Complete(r.Context(), id); err != nil {
		if errors.Is(err, reminder.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "reminder not found")
			return
		}

		h.log.Error("completing reminder", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")

		return
	}

	w.WriteHeader(http.StatusNoContent)
}
