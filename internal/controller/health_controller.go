// internal/controller/health_controller.go
package controller

import (
	"database/sql"
	"net/http"

	"github.com/redis/go-redis/v9"
)

type HealthController struct {
	DB    *sql.DB
	Redis *redis.Client
}

func (h *HealthController) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.DB.PingContext(r.Context()); err != nil {
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	if err := h.Redis.Ping(r.Context()).Err(); err != nil {
		http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
