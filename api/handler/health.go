package handler

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/pets/api/transport"
	"github.com/fastygo/pets/internal/infrastructure/monitor"
	"github.com/fastygo/pets/pkg/httpcontext"
)

// StatusSource is satisfied by *monitor.Monitor.
type StatusSource interface {
	GetStatus() monitor.Status
	IsOnline() bool
}

type HealthHandler struct {
	baseHandler
	monitor StatusSource
}

func NewHealthHandler(mon StatusSource, adapter *httpcontext.Adapter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		monitor:     mon,
	}
}

// @Summary Health check
// @Tags health
// @Router /health [get]
func (h *HealthHandler) Check(ctx *fasthttp.RequestCtx) {
	status := h.monitor.GetStatus()
	payload := map[string]interface{}{
		"timestamp":  time.Now().UTC(),
		"last_check": status.LastCheck,
		"services": map[string]interface{}{
			"postgresql": status.PostgreSQL,
			"redis":      status.Redis,
			"broker":     status.Broker,
			"outbox": map[string]interface{}{
				"enabled":      status.Outbox.Enabled,
				"online":       status.Outbox.Online,
				"size":         status.OutboxSize,
				"dead_letters": status.DeadLetters,
			},
		},
	}

	if h.monitor.IsOnline() {
		h.respondSuccess(ctx, http.StatusOK, payload)
		return
	}
	h.respondJSON(ctx, http.StatusServiceUnavailable, transport.NewError("DEGRADED", "dependencies unhealthy", payload))
}
