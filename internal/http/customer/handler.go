package customer

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/khata/internal/customer"
	"github.com/MrJamesThe3rd/khata/internal/http/respond"
	"github.com/MrJamesThe3rd/khata/internal/ledger"
)

type Balances interface {
	Balance(ctx context.Context, customerID uuid.UUID) (ledger.Balance, error)
	Balances(ctx context.Context) (map[uuid.UUID]ledger.Balance, error)
}

type Handler struct {
	svc      *customer.Service
	balances Balances
	log      *zap.Logger
}

func NewHandler(svc *customer.Service, balances Balances, log *zap.Logger) *Handler {
	return &Handler{svc: svc, balances: balances, log: log}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
}

type customerResponse struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Phone       *string         `json:"phone,omitempty"`
	Credit      decimal.Decimal `json:"credit"`
	Payments    decimal.Decimal `json:"payments"`
	Outstanding decimal.Decimal `json:"outstanding"`
	CreatedAt   time.Time       `json:"created_at"`
}

func toResponse(c *customer.Customer, b ledger.Balance) customerResponse {
	return customerResponse{
		ID:          c.ID,
		Name:        c.Name,
		Phone:       c.Phone,
		Credit:      b.Credit,
		Payments:    b.Payments,
		Outstanding: b.Outstanding(),
		CreatedAt:   c.CreatedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	customers, err := h.svc.List(r.Context())
	if err != nil {
		h.internal(w, "listing customers", err)
		return
	}

	balances, err := h.balances.Balances(r.Context())
	if err != nil {
		h.internal(w, "folding balances", err)
		return
	}

	resp := make([]customerResponse, len(customers))
	for i, c := range customers {
		resp[i] = toResponse(c, balances[c.ID])
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid id")
		return
	}

	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "customer not found")
			return
		}

		h.internal(w, "getting customer", err)

		return
	}

	b, err := h.balances.Balance(r.Context(), id)
	if err != nil {
		h.internal(w, "getting balance", err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(c, b))
}

type createRequest struct {
	Name  string `json:"name" validate:"required,max=120"`
	Phone string `json:"phone" validate:"max=32"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !respond.Decode(w, r, &req) {
		return
	}

	c, err := h.svc.Create(r.Context(), customer.CreateParams{Name: req.Name, Phone: req.Phone})
	if err != nil {
		if errors.Is(err, customer.ErrInvalidName) || errors.Is(err, customer.ErrInvalidPhone) {
			respond.Error(w, http.StatusBadRequest, err.Error())
			return
		}

		h.internal(w, "creating customer", err)

		return
	}

	respond.JSON(w, http.StatusCreated, toResponse(c, ledger.Balance{}))
}

func (h *Handler) internal(w http.ResponseWriter, op string, err error) {
	h.log.Error(op, zap.Error(err))
	respond.Error(w, http.StatusInternalServerError, "internal error")
}
