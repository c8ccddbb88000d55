package cron

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flemzord/catbot/internal/stats"
)

// StatsReportJob logs counter totals across every room.
type StatsReportJob struct {
	Store        stats.Store
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "@hourly"
}

// Compile-time interface check.
var _ Job = (*StatsReportJob)(nil)

// Name implements Job.
func (j *StatsReportJob) Name() string { return "stats_report" }

// Schedule implements Job.
func (j *StatsReportJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "@hourly"
}

// Run snapshots the store and logs one record with a total per core
// counter and the number of rooms seen.
func (j *StatsReportJob) Run(ctx context.Context) error {
	entries, err := j.Store.Snapshot(ctx, "")
	if err != nil {
		return fmt.Errorf("cron: stats snapshot: %w", err)
	}

	rooms := make(map[string]struct{})
	for _, e := range entries {
		rooms[e.Room] = struct{}{}
	}

	j.Logger.Info("stats report",
		"rooms", len(rooms),
		stats.CounterProcessed, stats.Sum(entries, stats.CounterProcessed),
		stats.CounterActivity, stats.Sum(entries, stats.CounterActivity),
		stats.CounterRandom, stats.Sum(entries, stats.CounterRandom),
		stats.CounterMsgAction, stats.Sum(entries, stats.CounterMsgAction),
	)
	return nil
}
