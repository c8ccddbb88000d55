// Package cron runs catbot's periodic background tasks, such as the stats
// report, on robfig/cron schedules.
package cron

import "context"

// Job defines a periodic background task.
type Job interface {
	// Name returns a unique identifier for this job (used for logging and dedup).
	Name() string

	// Schedule returns a cron expression: five fields ("*/5 * * * *") or a
	// descriptor ("@hourly", "@every 30m").
	Schedule() string

	// Run executes the job. Implementations should check ctx.Done() for
	// graceful cancellation.
	Run(ctx context.Context) error
}
