package matching

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/khata/internal/http/respond"
	"github.com/MrJamesThe3rd/khata/internal/matching"
)

type Handler struct {
	svc *matching.Service
	log *zap.Logger
}

func NewHandler(svc *matching.Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/suggest", h.suggest)
	r.Post("/", h.learn)
}

type suggestResponse struct {
	Raw      string `json:"raw"`
	ItemName string `json:"item_name"`
}

func (h *Handler) suggest(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("raw")
	if raw == "" {
		respond.Error(w, http.StatusBadRequest, "raw query parameter is required")
		return
	}

	name, err := h.svc.Alias(r.Context(), raw)
	if err != nil {
		h.log.Error("resolving alias", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")

		return
	}

	respond.JSON(w, http.StatusOK, suggestResponse{Raw: raw, ItemName: name})
}

type aliasResponse struct {
	RawPattern string `json:"raw_pattern"`
	ItemName   string `json:"item_name"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	aliases, err := h.svc.List(r.Context())
	if err != nil {
		h.log.Error("listing aliases", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")

		return
	}

	resp := make([]aliasResponse, len(aliases))
	for i, a := range aliases {
		resp[i] = aliasResponse{RawPattern: a.RawPattern, ItemName: a.ItemName}
	}

	respond.JSON(w, http.StatusOK, resp)
}

type learnRequest struct {
	RawPattern string `json:"raw_pattern" validate:"required,max=120"`
	ItemName   string `json:"item_name" validate:"required,max=120"`
}

func (h *Handler) learn(w http.ResponseWriter, r *http.Request) {
	var req learnRequest
	if !respond.Decode(w, r, &req) {
		return
	}

	if err := h.svc.Learn(r.Context(), req.RawPattern, req.ItemName); err != nil {
		if errors.Is(err, matching.ErrInvalidAlias) {
			respond.Error(w, http.StatusBadRequest, err.Error())
			return
		}

		h.log.Error("learning alias", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")

		return
	}

	w.WriteHeader(http.StatusCreated)
}
