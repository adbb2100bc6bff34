// File: internal/handlers/health_handler.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/ksamadi/omnichat/internal/services/chat"
)

const healthCheckTimeout = 5 * time.Second

// HealthChecker reports whether one external collaborator is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type namedChecker struct {
	name    string
	checker HealthChecker
}

// HealthHandler serves GET /health, pinging every registered
// collaborator.
type HealthHandler struct {
	checks []namedChecker
	logger chat.Logger
}

func NewHealthHandler(logger chat.Logger) *HealthHandler {
	return &HealthHandler{logger: logger}
}

// Register adds a collaborator to the health report. Nil checkers are
// skipped so optional collaborators can be passed through unguarded.
func (h *HealthHandler) Register(name string, checker HealthChecker) {
	if checker == nil {
		return
	}
	h.checks = append(h.checks, namedChecker{name: name, checker: checker})
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	components := make(map[string]string, len(h.checks))
	healthy := true
	for _, c := range h.checks {
		if err := c.checker.HealthCheck(ctx); err != nil {
			h.logger.Warn("health check failed", "component", c.name, "error", err.Error())
			components[c.name] = err.Error()
			healthy = false
			continue
		}
		components[c.name] = "ok"
	}

	status := "ok"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":     status,
		"components": components,
	})
}
