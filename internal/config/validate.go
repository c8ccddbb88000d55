package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/flemzord/catbot/internal/core"
	"github.com/flemzord/catbot/internal/cron"
	"github.com/flemzord/catbot/internal/security"
)

// Validate checks the structural validity of a Config: version, known
// module IDs, exactly one channel module, the router and log settings, and job
// schedules.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if len(cfg.Modules) == 0 {
		errs = append(errs, errors.New("config: at least one module must be configured"))
	}

	var channels []string
	for id := range cfg.Modules {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
		}
		if strings.HasPrefix(id, "channel.") {
			channels = append(channels, id)
		}
	}
	if len(cfg.Modules) > 0 && len(channels) != 1 {
		errs = append(errs, fmt.Errorf("config: exactly one channel module is required, got %d", len(channels)))
	}

	errs = append(errs, validateRouter(cfg.Router)...)
	errs = append(errs, validateLog(cfg.Log)...)

	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("config: tracing.sample_ratio must be within [0,1], got %v", cfg.Tracing.SampleRatio))
	}
	if expr := cfg.Cron.StatsReport; expr != "" {
		if err := cron.ParseSchedule(expr); err != nil {
			errs = append(errs, fmt.Errorf("config: cron.stats_report: %w", err))
		}
	}

	return errors.Join(errs...)
}

func validateRouter(r RouterConfig) []error {
	var errs []error
	if r.Workers < 0 {
		errs = append(errs, fmt.Errorf("config: router.workers must be non-negative, got %d", r.Workers))
	}
	if r.InboxSize < 0 {
		errs = append(errs, fmt.Errorf("config: router.inbox_size must be non-negative, got %d", r.InboxSize))
	}
	if r.DedupWindow < 0 {
		errs = append(errs, fmt.Errorf("config: router.dedup_window must be non-negative, got %s", r.DedupWindow))
	}
	if r.DedupCapacity < 0 {
		errs = append(errs, fmt.Errorf("config: router.dedup_capacity must be non-negative, got %d", r.DedupCapacity))
	}
	if r.HandlerParallelism < 0 {
		errs = append(errs, fmt.Errorf("config: router.handler_parallelism must be non-negative, got %d", r.HandlerParallelism))
	}
	for name, p := range map[string]*float64{"random_p": r.RandomP, "liveness_p": r.LivenessP} {
		if p != nil && (*p < 0 || *p > 1) {
			errs = append(errs, fmt.Errorf("config: router.%s must be within [0,1], got %v", name, *p))
		}
	}
	if strings.ContainsAny(r.CommandPrefix, " \t\n") {
		errs = append(errs, fmt.Errorf("config: router.command_prefix must not contain whitespace, got %q", r.CommandPrefix))
	}
	return errs
}

func validateLog(l LogConfig) []error {
	var errs []error
	if _, err := security.ParseLevel(l.Level); err != nil {
		errs = append(errs, fmt.Errorf("config: log.level: %w", err))
	}
	switch strings.ToLower(l.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config: log.format must be text or json, got %q", l.Format))
	}
	return errs
}
