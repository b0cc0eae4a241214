package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/feldrin/vtt-backend/internal/apperr"
	"github.com/feldrin/vtt-backend/internal/maps"
)

type Handlers struct {
	svc *maps.Service
	log *zap.Logger
}

func NewHandlers(svc *maps.Service, log *zap.Logger) *Handlers {
	return &Handlers{svc: svc, log: log}
}

type createMapRequest struct {
	Name            string   `json:"name"`
	MediaIDs        []string `json:"mediaIds"`
	SelectedMediaID string   `json:"selectedMediaId"`
	CampaignID      string   `json:"campaignId"`
	CreatedByID     string   `json:"createdById"`
}

type updateMapRequest struct {
	Name            *string  `json:"name"`
	MediaIDs        []string `json:"mediaIds"`
	SelectedMediaID *string  `json:"selectedMediaId"`
}

type reorderRequest struct {
	MapIDs []string `json:"mapIds"`
}

func (h *Handlers) ListCampaignMaps(w http.ResponseWriter, r *http.Request) {
	ms, err := h.svc.ListByCampaign(r.Context(), chi.URLParam(r, "campaignId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ms)
}

func (h *Handlers) GetMap(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.GetByID(r.Context(), chi.URLParam(r, "mapId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, m)
}

func (h *Handlers) CreateMap(w http.ResponseWriter, r *http.Request) {
	var req createMapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	m, err := h.svc.Create(r.Context(), maps.CreateInput{
		Name:            req.Name,
		MediaIDs:        req.MediaIDs,
		SelectedMediaID: req.SelectedMediaID,
		CampaignID:      req.CampaignID,
		CreatedByID:     req.CreatedByID,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, m)
}

func (h *Handlers) DuplicateMap(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Duplicate(r.Context(), chi.URLParam(r, "mapId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, m)
}

func (h *Handlers) UpdateMap(w http.ResponseWriter, r *http.Request) {
	var req updateMapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	m, err := h.svc.Update(r.Context(), chi.URLParam(r, "mapId"), maps.UpdateInput{
		Name:            req.Name,
		MediaIDs:        req.MediaIDs,
		SelectedMediaID: req.SelectedMediaID,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, m)
}

func (h *Handlers) DeleteMap(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Delete(r.Context(), chi.URLParam(r, "mapId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, m)
}

func (h *Handlers) ReorderMaps(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	ms, err := h.svc.Reorder(r.Context(), chi.URLParam(r, "campaignId"), req.MapIDs)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ms)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperr.IsValidation(err):
		status = http.StatusBadRequest
	case apperr.IsNotFound(err):
		status = http.StatusNotFound
	case apperr.IsConflict(err):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.Error(err))
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}
