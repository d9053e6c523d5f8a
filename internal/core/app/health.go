package app

import (
	"context"
	"fmt"
	"time"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

type HealthService struct {
	session *Session
}

func NewHealthService(session *Session) *HealthService {
	return &HealthService{session: session}
}

func (h *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}
	s := h.session
	if s == nil {
		status.Status = "down"
		status.Components["session"] = "missing"
		return status
	}

	status.Components["workspace"] = fmt.Sprintf("ok (%d roots, %d open documents)", len(s.ws.Roots()), len(s.ws.OpenDocuments()))

	known := s.store.Known()
	empty := 0
	for _, ix := range known {
		if len(ix.Names) == 0 {
			empty++
		}
	}
	status.Components["pack_index"] = fmt.Sprintf("ok (%d scopes built, %d without symbols)", len(known), empty)
	if len(known) > 0 && empty == len(known) {
		status.Status = "degraded"
	}

	if s.packStore != nil {
		stats, err := s.packStore.Stats()
		if err != nil {
			status.Status = "degraded"
			status.Components["pack_store"] = "error: " + err.Error()
		} else {
			status.Components["pack_store"] = fmt.Sprintf("ok (%d files, %d hits, %d misses)", stats.Files, stats.Hits, stats.Misses)
		}
	} else if s.Config().Store.Enabled {
		status.Status = "degraded"
		status.Components["pack_store"] = "missing but enabled in config"
	}

	if err := ctx.Err(); err != nil {
		status.Status = "degraded"
		status.Components["context"] = err.Error()
	}
	return status
}
