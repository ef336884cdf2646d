// internal/service/sync_scheduler.go
package service

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SyncScheduler ticks the due-campaign claimer on a fixed cron spec. State
// lives in the campaign rows, not in the scheduler, so any number of restarts
// only delays the next tick.
type SyncScheduler struct {
	cron *cron.Cron
	log  *zap.Logger
}

func NewSyncScheduler(sync *SyncService, spec string, log *zap.Logger) (*SyncScheduler, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		sync.RunDue(context.Background())
	})
	if err != nil {
		return nil, fmt.Errorf("invalid sync claim spec %q: %w", spec, err)
	}
	return &SyncScheduler{cron: c, log: log}, nil
}

func (s *SyncScheduler) Start() {
	s.log.Info("sync scheduler started")
	s.cron.Start()
}

func (s *SyncScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("sync scheduler stopped")
}
