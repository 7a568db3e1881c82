package http

import (
	"SnapLink-Backend/internal/analytics"
	"SnapLink-Backend/internal/database"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	db       *gorm.DB
	recorder *analytics.Recorder
	log      *zap.Logger
}

func NewHealthHandler(db *gorm.DB, recorder *analytics.Recorder, log *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:       db,
		recorder: recorder,
		log:      log,
	}
}

type HealthResponse struct {
	Status         string                 `json:"status"`
	Timestamp      time.Time              `json:"timestamp"`
	DatabaseStatus string                 `json:"database_status"`
	Recorder       map[string]interface{} `json:"recorder,omitempty"`
	Uptime         string                 `json:"uptime"`
}

var startTime = time.Now()

// Health reports overall process health including a database ping.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	dbStatus := "healthy"
	status := "healthy"
	statusCode := http.StatusOK

	if h.db != nil {
		if err := database.HealthCheck(h.db); err != nil {
			h.log.Error("database health check failed", zap.Error(err))
			dbStatus = "unhealthy"
			status = "unhealthy"
			statusCode = http.StatusServiceUnavailable
		}
	}

	response := HealthResponse{
		Status:         status,
		Timestamp:      time.Now(),
		DatabaseStatus: dbStatus,
		Uptime:         time.Since(startTime).String(),
	}
	if h.recorder != nil {
		response.Recorder = h.recorder.Stats()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error("failed to encode health response", zap.Error(err))
	}
}

// Ready reports whether the process can accept traffic.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "ready",
		"timestamp": time.Now(),
	})
}
