package vton

import (
	"context"
	"fmt"
	"time"

	"github.com/nikhilmehra04/stylehub-backend/pkg/lightx"
)

// pollJob watches a queued generation until it resolves or the attempts
// run out. Provider hiccups are logged and retried on the next tick
// rather than failing the job early.
func (s *service) pollJob(ctx context.Context, jobID uint, orderID string) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				s.markFailed(ctx, jobID)
				return
			case <-time.After(s.pollInterval):
			}
		}

		state, err := s.provider.OrderStatus(ctx, orderID)
		if err != nil {
			s.log.Warn(ctx, fmt.Sprintf("try-on status check %d/%d failed: %v", attempt, s.maxAttempts, err))
			continue
		}

		switch {
		case state.Status == lightx.StatusActive && state.Output != "":
			if err := s.repo.CompleteJob(ctx, jobID, state.Output); err != nil {
				s.log.Error(ctx, "failed to record completed try-on job", err)
			} else {
				s.log.Info(ctx, "try-on job completed")
			}
			return
		case state.Status == lightx.StatusFailed:
			s.markFailed(ctx, jobID)
			return
		}
	}

	s.log.Warn(ctx, "try-on job timed out waiting for the provider")
	s.markFailed(ctx, jobID)
}

func (s *service) markFailed(ctx context.Context, jobID uint) {
	if err := s.repo.FailJob(ctx, jobID); err != nil {
		s.log.Error(ctx, "failed to record failed try-on job", err)
	}
}
