package cron_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/flemzord/catbot/internal/cron"
	"github.com/flemzord/catbot/internal/security/securitytest"
	"github.com/flemzord/catbot/internal/stats"
)

type failingStore struct{ stats.Store }

func (failingStore) Snapshot(context.Context, string) ([]stats.Entry, error) {
	return nil, errors.New("disk I/O error")
}

func TestStatsReportJob_Defaults(t *testing.T) {
	t.Parallel()

	j := &cron.StatsReportJob{}
	if j.Name() != "stats_report" {
		t.Errorf("Name() = %q", j.Name())
	}
	if j.Schedule() != "@hourly" {
		t.Errorf("Schedule() = %q, want @hourly", j.Schedule())
	}
	j.ScheduleExpr = "0 9 * * *"
	if j.Schedule() != "0 9 * * *" {
		t.Errorf("Schedule() = %q, want override", j.Schedule())
	}
}

func TestStatsReportJob_LogsTotals(t *testing.T) {
	t.Parallel()

	store := stats.NewMemoryStore()
	ctx := context.Background()
	for _, k := range []stats.Key{
		{Counter: stats.CounterProcessed, Room: "!a:hs"},
		{Counter: stats.CounterProcessed, Room: "!b:hs"},
		{Counter: stats.CounterProcessed, Room: "!b:hs"},
		{Counter: stats.CounterActivity, Room: "!a:hs", Module: "universal"},
	} {
		if err := store.Add(ctx, k, 1); err != nil {
			t.Fatal(err)
		}
	}

	logger, buf := securitytest.NewCapturingLogger(securitytest.NewTestRedactor())
	j := &cron.StatsReportJob{Store: store, Logger: logger}
	if err := j.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"stats report", "rooms=2", "totalProcessedMsgs=3", "totalActivity=1", "randomFunctions=0"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}

func TestStatsReportJob_StoreError(t *testing.T) {
	t.Parallel()

	logger, _ := securitytest.NewCapturingLogger(securitytest.NewTestRedactor())
	j := &cron.StatsReportJob{Store: failingStore{}, Logger: logger}
	if err := j.Run(context.Background()); err == nil || !strings.Contains(err.Error(), "stats snapshot") {
		t.Errorf("Run() error = %v", err)
	}
}
