package importcsv

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/khata/internal/http/respond"
	"github.com/MrJamesThe3rd/khata/internal/importer"
)

const maxUpload = 10 << 20

type Handler struct {
	importSvc *importer.Service
	log       *zap.Logger
}

func NewHandler(importSvc *importer.Service, log *zap.Logger) *Handler {
	return &Handler{importSvc: importSvc, log: log}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importCSV)
}

type skippedRow struct {
	Line  int    `json:"line"`
	Error string `json:"error"`
}

type importResponse struct {
	Created int          `json:"created"`
	Updated int          `json:"updated"`
	Skipped []skippedRow `json:"skipped"`
}

func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		respond.Error(w, http.StatusBadRequest, "failed to parse form: "+err.Error())
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	report, err := h.importSvc.Import(r.Context(), file)
	if err != nil {
		if errors.Is(err, importer.ErrNoHeader) {
			respond.Error(w, http.StatusBadRequest, err.Error())
			return
		}

		h.log.Error("importing catalog", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")

		return
	}

	resp := importResponse{
		Created: report.Created,
		Updated: report.Updated,
		Skipped: make([]skippedRow, 0, len(report.Skipped)),
	}

	for _, s := range report.Skipped {
		resp.Skipped = append(resp.Skipped, skippedRow{Line: s.Line, Error: s.Err.Error()})
	}

	respond.JSON(w, http.StatusCreated, resp)
}
