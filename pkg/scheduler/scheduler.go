package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/ds124wfegd/tickethub/internal/service"
)

type Scheduler struct {
	waitlistService service.WaitlistService
	interval        time.Duration
}

func NewScheduler(waitlistService service.WaitlistService, interval time.Duration) *Scheduler {
	return &Scheduler{
		waitlistService: waitlistService,
		interval:        interval,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.waitlistService.SweepExpiredHolds(ctx); err != nil {
				fmt.Printf("Error sweeping expired waitlist holds: %v\n", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
