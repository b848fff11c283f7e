package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-service/pkg/response"
)

// Checker reports whether one backing service is reachable.
type Checker = func(ctx context.Context) error

type HealthHandler struct {
	Checks  map[string]Checker
	Timeout time.Duration
	Logger  *logrus.Logger
}

func NewHealthHandler(checks map[string]Checker, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{Checks: checks, Timeout: 2 * time.Second, Logger: logger}
}

// Health runs every check and answers 503 if any failed.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.Timeout)
	defer cancel()

	status := make(map[string]string, len(h.Checks))
	healthy := true
	for name, check := range h.Checks {
		if err := check(ctx); err != nil {
			healthy = false
			status[name] = "down"
			h.Logger.WithError(err).WithField("dependency", name).Warn("health check failed")
			continue
		}
		status[name] = "up"
	}

	if !healthy {
		response.Error[any](c, http.StatusServiceUnavailable, "unhealthy", status)
		return
	}
	response.Success(c, http.StatusOK, status, "ok", nil)
}
