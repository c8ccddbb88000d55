package cron

import "testing"

func FuzzParseSchedule(f *testing.F) {
	for _, seed := range []string{"*/5 * * * *", "0 0 * * *", "@hourly", "@every 90s", "invalid", "", "60 * * * *", "@every"} {
		f.Add(seed)
	}

	f.Fuzz(func(_ *testing.T, expr string) {
		// Must not panic; errors are expected.
		_ = ParseSchedule(expr)
	})
}
