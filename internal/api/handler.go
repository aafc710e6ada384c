package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"room-status-backend/config"
	"room-status-backend/internal/auth"
	"room-status-backend/internal/geo"
	"room-status-backend/internal/notification"
	"room-status-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store     store.Store
	validator *geo.Validator
	sessions  *auth.Sessions
	webpush   *webpush.Options
	pool      *notification.WorkerPool
	layout    map[string][][]string
	now       func() time.Time
}

// NewHandler creates a new API handler. pool may be nil when push
// notifications are not configured.
func NewHandler(cfg *config.Config, s store.Store, sessions *auth.Sessions, webpushOptions *webpush.Options, pool *notification.WorkerPool) *Handler {
	return &Handler{
		store:     s,
		validator: geo.NewValidator(cfg.Geofence),
		sessions:  sessions,
		webpush:   webpushOptions,
		pool:      pool,
		layout:    cfg.Layout,
		now:       time.Now,
	}
}
