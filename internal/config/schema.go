// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for catbot.
package config

import (
	"time"

	"gopkg.in/yaml.v3"
)

// BotServiceName is the AppContext service key under which the app
// publishes the *BotConfig for integrations (about, version).
const BotServiceName = "bot.info"

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	Bot     BotConfig     `yaml:"bot"`
	Router  RouterConfig  `yaml:"router"`
	Log     LogConfig     `yaml:"log"`
	Tracing TracingConfig `yaml:"tracing"`
	Cron    CronConfig    `yaml:"cron"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "channel.matrix").
	Modules map[string]yaml.Node `yaml:"modules"`
}

// BotConfig is the bot's identity, reported by the about and version
// commands.
type BotConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Author      string `yaml:"author"`
	Version     string `yaml:"version"`
	License     string `yaml:"license"`
}

// RouterConfig tunes message dispatch.
type RouterConfig struct {
	// CommandPrefix opens the activation gate. Defaults to "!meow".
	CommandPrefix string `yaml:"command_prefix"`
	Workers       int    `yaml:"workers"`
	InboxSize     int    `yaml:"inbox_size"`

	// DedupWindow is how long processed event IDs are remembered, and
	// DedupCapacity how many at most. Zero uses the router defaults
	// (10m, 4096).
	DedupWindow   time.Duration `yaml:"dedup_window"`
	DedupCapacity int           `yaml:"dedup_capacity"`

	// HandlerParallelism caps the handlers and reactors run concurrently
	// for one event. Zero uses the router default.
	HandlerParallelism int `yaml:"handler_parallelism"`

	// RandomP is the per-message probability of a random behavior;
	// LivenessP the nested probability of the liveness reply. Unset
	// values use the router defaults; 0 disables.
	RandomP   *float64 `yaml:"random_p"`
	LivenessP *float64 `yaml:"liveness_p"`
}

// LogConfig selects log verbosity and encoding.
type LogConfig struct {
	// Level is debug, info, warn or error. Defaults to info.
	Level string `yaml:"level"`
	// Format is text or json. Defaults to text.
	Format string `yaml:"format"`
}

// TracingConfig enables OTLP/HTTP trace export. Empty Endpoint disables
// tracing.
type TracingConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// CronConfig schedules periodic jobs. Schedules use robfig/cron syntax
// ("@hourly", "0 */6 * * *"). An empty schedule disables the job.
type CronConfig struct {
	StatsReport string `yaml:"stats_report"`
}

// Defaults fills unset bot identity fields.
func (c *Config) Defaults() {
	if c.Bot.Name == "" {
		c.Bot.Name = "catBot"
	}
	if c.Bot.Description == "" {
		c.Bot.Description = "A Matrix bot that meows back"
	}
	if c.Bot.Author == "" {
		c.Bot.Author = "the catbot authors"
	}
	if c.Bot.License == "" {
		c.Bot.License = "MIT"
	}
}
