package ledger

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/khata/internal/http/respond"
	"github.com/MrJamesThe3rd/khata/internal/ledger"
)

const defaultLimit = 100

type Handler struct {
	svc *ledger.Service
	log *zap.Logger
}

func NewHandler(svc *ledger.Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
}

type entryResponse struct {
	ID          uuid.UUID       `json:"id"`
	ActionID    *uuid.UUID      `json:"action_id,omitempty"`
	CustomerID  *uuid.UUID      `json:"customer_id,omitempty"`
	Type        ledger.Type     `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	ItemName    string          `json:"item_name,omitempty"`
	Quantity    int             `json:"quantity,omitempty"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ledger.ListFilter{Limit: defaultLimit}
	q := r.URL.Query()

	if s := q.Get("customer_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid customer_id")
			return
		}

		filter.CustomerID = &id
	}

	if s := q.Get("action_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid action_id")
			return
		}

		filter.ActionID = &id
	}

	if s := q.Get("type"); s != "" {
		t := ledger.Type(s)
		if !t.Valid() {
			respond.Error(w, http.StatusBadRequest, "invalid type")
			return
		}

		filter.Type = &t
	}

	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respond.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}

		filter.Limit = n
	}

	entries, err := h.svc.List(r.Context(), filter)
	if err != nil {
		h.log.Error("listing ledger", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")

		return
	}

	resp := make([]entryResponse, len(entries))
	for i, e := range entries {
		resp[i] = entryResponse{
			ID:          e.ID,
			ActionID:    e.ActionID,
			CustomerID:  e.CustomerID,
			Type:        e.Type,
			Amount:      e.Amount,
			ItemName:    e.ItemName,
			Quantity:    e.Quantity,
			Description: e.Description,
			CreatedAt:   e.CreatedAt,
		}
	}

	respond.JSON(w, http.StatusOK, resp)
}
