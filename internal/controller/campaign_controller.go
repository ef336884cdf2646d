// internal/controller/campaign_controller.go
package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	appErrors "github.com/glowdesk/campaigns-backend/internal/errors"
	"github.com/glowdesk/campaigns-backend/internal/model"
	"github.com/glowdesk/campaigns-backend/internal/service"
)

type CampaignController struct {
	CampaignService *service.CampaignService
	SyncService     *service.SyncService
	Log             *zap.Logger
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body service.CreateCampaignInput
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	result, err := c.CampaignService.CreateCampaign(r.Context(), body)
	if err != nil {
		c.writeError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Batches > 0 {
		// multi-day creation proceeds in the background
		status = http.StatusAccepted
	}
	writeJSON(w, status, result)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	businessID := r.URL.Query().Get("business_id")
	status := model.CampaignStatus(r.URL.Query().Get("status"))

	campaigns, pagination, err := c.CampaignService.List(r.Context(), page, pageSize, businessID, status)
	if err != nil {
		c.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":       campaigns,
		"pagination": pagination,
	})
}

func (c *CampaignController) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	campaign, err := c.CampaignService.Get(r.Context(), id)
	if err != nil {
		c.writeError(w, err)
		return
	}
	stats, err := c.CampaignService.Stats(r.Context(), id)
	if err != nil {
		c.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"campaign": campaign,
		"stats":    stats,
	})
}

func (c *CampaignController) PauseCampaign(w http.ResponseWriter, r *http.Request) {
	c.lifecycle(w, r, c.CampaignService.Pause, "paused")
}

func (c *CampaignController) ContinueCampaign(w http.ResponseWriter, r *http.Request) {
	c.lifecycle(w, r, c.CampaignService.Continue, "sending")
}

func (c *CampaignController) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	c.lifecycle(w, r, c.CampaignService.Delete, "deleted")
}

// SyncCampaign forces a refresh against the provider, outside the scheduled
// polling cadence.
func (c *CampaignController) SyncCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	if err := c.SyncService.SyncByID(r.Context(), id); err != nil {
		c.writeError(w, err)
		return
	}

	campaign, err := c.CampaignService.Get(r.Context(), id)
	if err != nil {
		c.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (c *CampaignController) DeleteCampaigns(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs []int `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if len(body.IDs) == 0 {
		http.Error(w, "ids is empty", http.StatusBadRequest)
		return
	}

	result := c.CampaignService.DeleteMany(r.Context(), body.IDs)
	writeJSON(w, http.StatusOK, result)
}

func (c *CampaignController) GetQuota(w http.ResponseWriter, r *http.Request) {
	businessID := r.URL.Query().Get("business_id")
	if businessID == "" {
		http.Error(w, "business_id is required", http.StatusBadRequest)
		return
	}

	day := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		day = parsed
	}

	status, err := c.CampaignService.GetQuota(r.Context(), businessID, day)
	if err != nil {
		c.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// lifecycle handles the shared decode/execute/respond shape of pause,
// continue and delete.
func (c *CampaignController) lifecycle(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id int) error, outcome string) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	if err := op(r.Context(), id); err != nil {
		c.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":     id,
		"status": outcome,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func pathID(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "id"))
}

// writeError maps domain errors onto HTTP statuses.
func (c *CampaignController) writeError(w http.ResponseWriter, err error) {
	var notFound *appErrors.ErrCampaignNotFound
	var provider *appErrors.ErrProvider

	switch {
	case errors.As(err, &notFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case appErrors.IsValidation(err):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case appErrors.IsLifecycle(err):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &provider):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		c.Log.Error("request failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
