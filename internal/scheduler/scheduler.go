package scheduler

import (
	"context"
	"time"

	"cryptocandles/internal/logger"
)

// Repeater runs a task every Interval until its context is cancelled. Runs
// never overlap: the next wait starts after the task returns.
type Repeater struct {
	Name           string
	Interval       time.Duration
	RunImmediately bool
}

func NewRepeater(name string, interval time.Duration) *Repeater {
	return &Repeater{Name: name, Interval: interval}
}

// Start blocks until ctx is done.
func (r *Repeater) Start(ctx context.Context, task func(context.Context)) {
	if r == nil {
		return
	}
	if task == nil {
		logger.Warnf("Repeater %s: task is nil, exit", r.Name)
		return
	}
	if r.Interval <= 0 {
		logger.Warnf("Repeater %s: invalid interval=%s, exit", r.Name, r.Interval)
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	logger.Infof("Repeater %s: started interval=%s run_immediately=%v", r.Name, r.Interval, r.RunImmediately)

	if r.RunImmediately {
		task(ctx)
	}
	timer := time.NewTimer(r.Interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Infof("Repeater %s: ctx done, exit", r.Name)
			return
		case <-timer.C:
		}
		task(ctx)
		timer.Reset(r.Interval)
	}
}
