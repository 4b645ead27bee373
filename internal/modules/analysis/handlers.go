package analysis

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles analysis HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new analysis handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "analysis").Logger(),
	}
}

// RegisterRoutes registers all analysis routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/analysis", func(r chi.Router) {
		r.Get("/", h.HandleGetAll)
		r.Get("/{assetID}", h.HandleGetByAsset)
		r.Post("/refresh", h.HandleRefresh)
	})
}

// HandleGetAll returns every asset's analysis row.
func (h *Handler) HandleGetAll(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.GetAll()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, rows)
}

// HandleGetByAsset returns one asset's analysis row with its traces.
func (h *Handler) HandleGetByAsset(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetID")
	row, err := h.service.GetByAsset(assetID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if row == nil {
		h.writeError(w, http.StatusNotFound, "asset has no analysis")
		return
	}
	h.writeJSON(w, http.StatusOK, row)
}

// HandleRefresh runs a full analysis pass and returns the report.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.RefreshAll(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
