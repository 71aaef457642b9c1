package app

import (
	"context"
	"fmt"
	"time"

	"pyshape/internal/core/ports"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

type HealthService struct {
	app *App
}

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

// Check reports "up" or "degraded". A failing cache or a last run with
// failed files degrades the status.
func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	s.app.mu.RLock()
	cfg, last := s.app.cfg, s.app.last
	s.app.mu.RUnlock()

	status.Components["mode"] = s.app.mode.String()
	status.Components["options"] = fmt.Sprintf("%d enabled", len(cfg.Options))

	if s.app.cache == nil {
		status.Components["cache"] = "disabled"
	} else if _, err := s.app.cache.Lookup(ctx, ports.CacheKey{}); err != nil {
		status.Status = "degraded"
		status.Components["cache"] = "error: " + err.Error()
	} else {
		status.Components["cache"] = "ok"
	}

	switch {
	case last == nil:
		status.Components["last_run"] = "none"
	case last.Failed():
		status.Status = "degraded"
		status.Components["last_run"] = fmt.Sprintf("%s: %d failed", last.RunID, last.Count(ports.OutcomeFailed))
	default:
		status.Components["last_run"] = fmt.Sprintf("%s: %d files", last.RunID, len(last.Reports))
	}
	return status
}
