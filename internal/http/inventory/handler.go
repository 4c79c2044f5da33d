package inventory

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/khata/internal/http/respond"
	"github.com/MrJamesThe3rd/khata/internal/inventory"
)

type Handler struct {
	svc *inventory.Service
	log *zap.Logger
}

func NewHandler(svc *inventory.Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Post("/{id}/adjust", h.adjust)
}

type itemResponse struct {
	ID                uuid.UUID       `json:"id"`
	Name              string          `json:"name"`
	Quantity          int             `json:"quantity"`
	Unit              string          `json:"unit"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	LowStockThreshold int             `json:"low_stock_threshold"`
	LowStock          bool            `json:"low_stock"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func toResponse(item *inventory.Item) itemResponse {
	return itemResponse{
		ID:                item.ID,
		Name:              item.Name,
		Quantity:          item.Quantity,
		Unit:              item.Unit,
		UnitPrice:         item.UnitPrice,
		LowStockThreshold: item.LowStockThreshold,
		LowStock:          item.IsLow(),
		UpdatedAt:         item.UpdatedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list := h.svc.List
	if r.URL.Query().Get("low") == "true" {
		list = h.svc.LowStock
	}

	items, err := list(r.Context())
	if err != nil {
		h.log.Error("listing items", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")

		return
	}

	resp := make([]itemResponse, len(items))
	for i, item := range items {
		resp[i] = toResponse(item)
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid id")
		return
	}

	item, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(item))
}

type createRequest struct {
	Name              string          `json:"name" validate:"required,max=120"`
	Quantity          int             `json:"quantity" validate:"gte=0"`
	Unit              string          `json:"unit" validate:"max=20"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	LowStockThreshold *int            `json:"low_stock_threshold" validate:"omitempty,gte=0"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !respond.Decode(w, r, &req) {
		return
	}

	item, err := h.svc.Create(r.Context(), inventory.CreateParams{
		Name:              req.Name,
		Quantity:          req.Quantity,
		Unit:              req.Unit,
		UnitPrice:         req.UnitPrice,
		LowStockThreshold: req.LowStockThreshold,
	})
	if err != nil {
		h.fail(w, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toResponse(item))
}

type adjustRequest struct {
	Delta int `json:"delta" validate:"ne=0"`
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req adjustRequest
	if !respond.Decode(w, r, &req) {
		return
	}

	item, err := h.svc.Adjust(r.Context(), id, req.Delta)
	if err != nil {
		h.fail(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(item))
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, inventory.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "item not found")
	case errors.Is(err, inventory.ErrInsufficientStock):
		respond.Error(w, http.StatusConflict, "insufficient stock")
	case errors.Is(err, inventory.ErrInvalid):
		respond.Error(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error("inventory request failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")
	}
}
