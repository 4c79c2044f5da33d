package export

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/khata/internal/customer"
	"github.com/MrJamesThe3rd/khata/internal/export"
	"github.com/MrJamesThe3rd/khata/internal/http/respond"
)

type Handler struct {
	svc *export.Service
	log *zap.Logger
}

func NewHandler(svc *export.Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/statements/{customerID}", h.statement)
}

// statement buffers the workbook so a failure can still be reported as JSON.
func (h *Handler) statement(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "customerID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid customer id")
		return
	}

	var buf bytes.Buffer

	c, err := h.svc.Statement(r.Context(), id, &buf)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "customer not found")
			return
		}

		h.log.Error("building statement", zap.Stringer("customer", id), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")

		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.svc.Filename(c)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))

	if _, err := buf.WriteTo(w); err != nil {
		h.log.Warn("writing statement", zap.Error(err))
	}
}
