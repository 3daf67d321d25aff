// internal/app/health.go
package app

import (
	"context"
	"net/http"
	"time"

	"frontdesk-gateway/internal/service/scheduler"
	"frontdesk-gateway/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type healthHandler struct {
	redis     *redis.Client
	pool      *pgxpool.Pool
	hub       *websocket.Hub
	scheduler *scheduler.Scheduler
}

// Handle reports store reachability plus live socket and timer counts. Redis
// being down makes the gateway unhealthy; the audit database does not.
func (h *healthHandler) Handle(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := gin.H{
		"status":         "ok",
		"redis":          "ok",
		"ws_clients":     h.hub.TotalClients(),
		"refresh_timers": h.scheduler.Pending(),
		"timestamp":      time.Now().UTC(),
	}

	if err := h.redis.Ping(ctx).Err(); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
		body["redis"] = err.Error()
	}

	if h.pool != nil {
		body["postgres"] = "ok"
		if err := h.pool.Ping(ctx); err != nil {
			body["postgres"] = err.Error()
		}
	}

	c.JSON(status, body)
}
