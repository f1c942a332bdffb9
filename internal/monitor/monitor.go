// Package monitor provides the operator view of live and recent interactions:
// a websocket feed of dispatch events plus stats and recent-activity endpoints
// backed by the interaction log.
package monitor

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ziadkadry99/opbot/internal/audit"
	"github.com/ziadkadry99/opbot/internal/interactions"
	"github.com/ziadkadry99/opbot/internal/logging"
)

// History is the slice of the interaction log the monitor reads.
type History interface {
	Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Entry, error)
	CountByOutcome(ctx context.Context, since time.Time) (map[interactions.Outcome]int, error)
}

// Monitor serves the live feed and the summary endpoints.
type Monitor struct {
	hub     *Hub
	history History
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a Monitor. history may be nil, in which case only the live
// feed is mounted.
func New(hub *Hub, history History, logger *zap.Logger) *Monitor {
	if hub == nil {
		hub = NewHub(logger)
	}
	return &Monitor{
		hub:     hub,
		history: history,
		logger:  logging.OrNop(logger),
		now:     time.Now,
	}
}

// Hub returns the event hub, which is also the Observer to register with the
// dispatcher.
func (m *Monitor) Hub() *Hub { return m.hub }

// RegisterRoutes mounts all monitor routes onto the given router.
func (m *Monitor) RegisterRoutes(r chi.Router) {
	r.Get("/monitor", m.ServeIndex)
	r.Get("/ws/interactions", m.hub.ServeWS)
	if m.history != nil {
		r.Get("/api/monitor/stats", m.handleStats)
		r.Get("/api/monitor/recent", m.handleRecent)
	}
}
