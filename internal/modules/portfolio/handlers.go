package portfolio

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/akontos/rebalancer/internal/domain"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	service *Service
	assets  *AssetRepository
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service *Service, assets *AssetRepository, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		assets:  assets,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// RegisterRoutes registers all portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio", func(r chi.Router) {
		r.Get("/", h.HandleGetPortfolio)
		r.Get("/summary", h.HandleGetSummary)
		r.Put("/cash", h.HandleSetCash)
		r.Put("/note", h.HandleSetNote)
	})
	r.Route("/assets", func(r chi.Router) {
		r.Get("/", h.HandleListAssets)
		r.Post("/", h.HandleCreateAsset)
		r.Get("/{id}", h.HandleGetAsset)
		r.Put("/{id}", h.HandleUpdateAsset)
		r.Delete("/{id}", h.HandleDeleteAsset)
	})
}

// HandleGetPortfolio returns the full portfolio snapshot.
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.Snapshot()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, snapshot)
}

// HandleGetSummary returns allocation weights and deviations.
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summarize()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// HandleSetCash updates the cash balance.
func (h *Handler) HandleSetCash(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Cash decimal.Decimal `json:"cash"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.service.SetCash(body.Cash); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"cash": body.Cash.String()})
}

// HandleSetNote updates the free-text portfolio note.
func (h *Handler) HandleSetNote(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Note string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.service.SetNote(body.Note); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListAssets returns all assets.
func (h *Handler) HandleListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.assets.GetAll()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if assets == nil {
		assets = []domain.Asset{}
	}
	h.writeJSON(w, http.StatusOK, assets)
}

// HandleCreateAsset validates and stores a new asset.
func (h *Handler) HandleCreateAsset(w http.ResponseWriter, r *http.Request) {
	var asset domain.Asset
	if err := json.NewDecoder(r.Body).Decode(&asset); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := h.service.CreateAsset(asset)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

// HandleGetAsset returns one asset.
func (h *Handler) HandleGetAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	asset, err := h.assets.GetByID(id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if asset == nil {
		h.writeError(w, http.StatusNotFound, "asset not found")
		return
	}
	h.writeJSON(w, http.StatusOK, asset)
}

// HandleUpdateAsset replaces an asset's fields.
func (h *Handler) HandleUpdateAsset(w http.ResponseWriter, r *http.Request) {
	var asset domain.Asset
	if err := json.NewDecoder(r.Body).Decode(&asset); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	asset.ID = chi.URLParam(r, "id")
	if err := h.service.UpdateAsset(asset); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, asset)
}

// HandleDeleteAsset removes an asset.
func (h *Handler) HandleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.DeleteAsset(id); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
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
