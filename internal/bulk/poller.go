package bulk

import (
	"context"
	"errors"
	"time"

	"claimprobe/internal/logging"
)

// ErrTimeout is returned when a job is still running after MaxWait.
var ErrTimeout = errors.New("job did not complete in time")

// Poller checks a job at a fixed interval until it reaches a terminal status.
type Poller struct {
	Client   *Client
	Interval time.Duration
	MaxWait  time.Duration

	// TolerateErrors keeps polling after a failed status check instead of
	// returning its error.
	TolerateErrors bool

	// OnProgress is called after every successful check.
	OnProgress func(check int, job *Job)
	// OnError is called after every failed check.
	OnError func(check int, err error)
}

// Poll returns the job once it is terminal. On ErrTimeout the last job seen
// is returned with the error.
func (p *Poller) Poll(ctx context.Context, id string) (*Job, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = 3 * time.Second
	}
	maxWait := p.MaxWait
	if maxWait <= 0 {
		maxWait = 60 * time.Second
	}

	start := time.Now()
	var last *Job
	for check := 1; time.Since(start) < maxWait; check++ {
		job, err := p.Client.Status(ctx, id)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return last, ctx.Err()
			}
			logging.Get(logging.CategoryBulk).Warn("job %s check %d failed: %v", id, check, err)
			if p.OnError != nil {
				p.OnError(check, err)
			}
			if !p.TolerateErrors {
				return last, err
			}
		default:
			last = job
			logging.BulkDebug("job %s check %d: %s %d/%d", id, check, job.Status, job.ProcessedRows, job.TotalRows)
			if p.OnProgress != nil {
				p.OnProgress(check, job)
			}
			if job.Terminal() {
				logging.Bulk("job %s finished with %s after %d checks", id, job.Status, check)
				return job, nil
			}
		}

		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-time.After(interval):
		}
	}

	logging.Get(logging.CategoryBulk).Warn("job %s not terminal after %v", id, maxWait)
	return last, ErrTimeout
}
