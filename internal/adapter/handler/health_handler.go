package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"tradews/internal/domain/port"
)

// IngestStats exposes the ingestion drop counters for monitoring.
type IngestStats interface {
	Rejected() int64
}

type HealthHandler struct {
	storage port.StoragePort
	buffer  port.TradeBufferPort
	stats   IngestStats
	logger  *slog.Logger
}

func NewHealthHandler(storage port.StoragePort, buffer port.TradeBufferPort, stats IngestStats, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		storage: storage,
		buffer:  buffer,
		stats:   stats,
		logger:  logger,
	}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	dbStatus := "healthy"
	bufferStatus := "healthy"
	overallStatus := "healthy"

	if err := h.storage.Ping(r.Context()); err != nil {
		dbStatus = "unhealthy"
		overallStatus = "degraded"
		h.logger.Warn("database health check failed", "error", err)
	}

	if err := h.buffer.Ping(r.Context()); err != nil {
		bufferStatus = "unhealthy"
		overallStatus = "degraded"
		h.logger.Warn("trade buffer health check failed", "error", err)
	}

	response := map[string]interface{}{
		"status": overallStatus,
		"checks": map[string]string{
			"database": dbStatus,
			"buffer":   bufferStatus,
		},
	}
	if h.stats != nil {
		response["rejected_trades"] = h.stats.Rejected()
	}

	statusCode := http.StatusOK
	if overallStatus == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}
