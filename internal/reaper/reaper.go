// Package reaper reclaims leases whose holder has stopped heartbeating.
package reaper

import (
	"context"
	"log"
	"time"

	"room-status-backend/config"
	"room-status-backend/internal/notification"
	"room-status-backend/internal/store"
)

// Service periodically frees PCs whose last heartbeat is older than the
// configured timeout. It acts with system authority: no ownership check, the
// holder is presumed gone (crashed client, dead battery, closed tab).
type Service struct {
	cfg        config.LeaseConfig
	store      store.Store
	workerPool *notification.WorkerPool
	now        func() time.Time
}

// NewService creates a reaper. workerPool may be nil when push notifications
// are not configured.
func NewService(cfg config.LeaseConfig, s store.Store, workerPool *notification.WorkerPool) *Service {
	return &Service{
		cfg:        cfg,
		store:      s,
		workerPool: workerPool,
		now:        time.Now,
	}
}

// Run scans on the configured interval until the context is cancelled.
func (s *Service) Run(ctx context.Context) {
	log.Printf("starting lease reaper: timeout=%s scan_interval=%s", s.cfg.Timeout, s.cfg.ScanInterval)

	timer := time.NewTimer(s.cfg.ScanInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("lease reaper shutting down")
			return
		case <-timer.C:
			s.ReapOnce(ctx)
			timer.Reset(s.cfg.ScanInterval)
		}
	}
}

// ReapOnce performs a single scan-and-expire pass. Expiry is a conditional
// transition guarded by "still busy and still stale"; a PC that heartbeats or
// finishes concurrently is left alone, and losing such a race is not an error.
func (s *Service) ReapOnce(ctx context.Context) {
	freed, err := s.store.ReapStale(ctx, s.now(), s.cfg.Timeout)
	if err != nil {
		log.Printf("error reaping stale leases: %v", err)
	}
	if len(freed) == 0 {
		return
	}

	log.Printf("reaped %d stale leases: %v", len(freed), freed)
	if s.workerPool != nil {
		for _, pcID := range freed {
			s.workerPool.Dispatch(pcID)
		}
	}
}
