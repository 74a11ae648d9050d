package controller

import (
	"context"
	"errors"
	"time"

	"github.com/coffersTech/logdash/internal/pkg/failure"
)

// Refresher calls Refresh on a fixed interval.
type Refresher struct {
	ctrl     *Controller
	interval time.Duration
}

// NewRefresher returns a Refresher for ctrl.
func NewRefresher(ctrl *Controller, interval time.Duration) *Refresher {
	return &Refresher{ctrl: ctrl, interval: interval}
}

// Run blocks until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) error {
	if r.interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	log.Infof("Auto-refresh every %v", r.interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_, err := r.ctrl.Refresh(ctx)
			switch {
			case err == nil:
			case errors.Is(err, failure.ErrBusy):
				log.Debugf("Auto-refresh skipped: upload in flight")
			case errors.Is(err, failure.ErrClosed):
				return nil
			default:
				log.Warningf("Auto-refresh failed: %v", err)
			}
		}
	}
}
