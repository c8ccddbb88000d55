// Package weather answers "weather <place>" with a one-line report from a
// wttr.in compatible service.
package weather

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/flemzord/catbot/internal/channel"
	"github.com/flemzord/catbot/internal/command"
	"github.com/flemzord/catbot/internal/core"
	"github.com/flemzord/catbot/internal/router"
	"github.com/flemzord/catbot/internal/stats"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Weather{})
}

var (
	_ router.Handler    = (*Weather)(nil)
	_ core.Configurable = (*Weather)(nil)
	_ core.Provisioner  = (*Weather)(nil)
	_ core.Validator    = (*Weather)(nil)
)

const (
	moduleTag       = "weather"
	actionWeather   = "weather"
	defaultBaseURL  = "https://wttr.in"
	defaultFormat   = "%l: %c %t, feels like %f, wind %w, humidity %h"
	defaultTimeout  = 10 * time.Second
	maxReportLength = 512
)

// ErrNoLocation is returned when the command names no place and no
// default location is configured.
var ErrNoLocation = errors.New("weather: no location given")

// locationPattern captures everything after the trigger word.
var locationPattern = regexp.MustCompile(`(?i)\bweather\b\s*(?:(?:in|for|at)\s+)?(.*)$`)

// Config holds the weather module configuration.
type Config struct {
	// BaseURL of the wttr.in service. Defaults to https://wttr.in.
	BaseURL string `yaml:"base_url"`
	// Format is the wttr.in one-line format string.
	Format string `yaml:"format"`
	// DefaultLocation is used when the command names no place.
	DefaultLocation string `yaml:"default_location"`
	// Timeout bounds each lookup. Defaults to 10s.
	Timeout time.Duration `yaml:"timeout"`
}

// Weather is the weather command handler.
type Weather struct {
	config   Config
	client   *http.Client
	logger   *slog.Logger
	registry []command.Action
}

// ModuleInfo implements core.Module.
func (w *Weather) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "integration.weather",
		New: func() core.Module { return &Weather{} },
	}
}

// Configure implements core.Configurable.
func (w *Weather) Configure(node *yaml.Node) error {
	if err := node.Decode(&w.config); err != nil {
		return fmt.Errorf("weather: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner.
func (w *Weather) Provision(ctx *core.AppContext) error {
	w.logger = ctx.Logger
	if w.config.BaseURL == "" {
		w.config.BaseURL = defaultBaseURL
	}
	w.config.BaseURL = strings.TrimRight(w.config.BaseURL, "/")
	if w.config.Format == "" {
		w.config.Format = defaultFormat
	}
	if w.config.Timeout == 0 {
		w.config.Timeout = defaultTimeout
	}
	w.client = &http.Client{Timeout: w.config.Timeout}
	w.registry = []command.Action{
		{
			Name:     actionWeather,
			Triggers: []command.Trigger{command.Word("weather", true)},
			Effect:   "Current conditions, e.g. weather in Paris",
		},
		{
			Name:     command.ActionHelp,
			Triggers: []command.Trigger{command.Word("help", false)},
			Effect:   "This help message",
		},
	}
	return nil
}

// Validate implements core.Validator.
func (w *Weather) Validate() error {
	u, err := url.Parse(w.config.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("weather: base_url must be a valid http/https URL, got %q", w.config.BaseURL)
	}
	if w.config.Timeout < 0 {
		return fmt.Errorf("weather: timeout must be positive, got %s", w.config.Timeout)
	}
	return nil
}

// Name implements router.Handler.
func (w *Weather) Name() string { return moduleTag }

// Handle implements router.Handler.
func (w *Weather) Handle(ctx context.Context, inv router.Invocation) error {
	ev := inv.Event
	res := command.Match(w.registry, ev.Body)
	if !res.Active {
		return nil
	}

	if res.Action == command.ActionHelp {
		return inv.Emitter.SendText(ctx, channel.Text{
			RoomID: ev.RoomID,
			Body:   command.HelpText("Weather", "Current weather from wttr.in", w.registry),
			Module: moduleTag,
		})
	}

	location := w.location(ev.Body)
	if location == "" {
		return ErrNoLocation
	}
	report, err := w.Lookup(ctx, location)
	if err != nil {
		sendErr := inv.Emitter.SendText(ctx, channel.Text{
			RoomID:  ev.RoomID,
			Body:    "I couldn't get the weather for <b>" + html.EscapeString(location) + "</b>, the sky is hiding from me.",
			ReplyTo: ev.EventID,
			Module:  moduleTag,
		})
		return errors.Join(err, sendErr)
	}

	if err := inv.Emitter.SendText(ctx, channel.Text{
		RoomID:  ev.RoomID,
		Body:    html.EscapeString(report),
		ReplyTo: ev.EventID,
		Prefix:  channel.PrefixAbsent,
		Module:  moduleTag,
	}); err != nil {
		return fmt.Errorf("weather: send report: %w", err)
	}
	inv.Emitter.AddStats(ctx, stats.CounterMsgAction, ev.RoomID, moduleTag, actionWeather)
	return nil
}

// location extracts the place named after the trigger word, falling back
// to the configured default.
func (w *Weather) location(body string) string {
	if m := locationPattern.FindStringSubmatch(body); m != nil {
		if loc := strings.Trim(strings.TrimSpace(m[1]), "?!."); loc != "" {
			return loc
		}
	}
	return w.config.DefaultLocation
}

// Lookup fetches the one-line report for location.
func (w *Weather) Lookup(ctx context.Context, location string) (string, error) {
	endpoint := w.config.BaseURL + "/" + url.PathEscape(location) + "?" + url.Values{"format": {w.config.Format}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("weather: create request: %w", err)
	}
	req.Header.Set("User-Agent", "catbot")

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("weather: lookup %s: %w", location, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReportLength))
	if err != nil {
		return "", fmt.Errorf("weather: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("weather: lookup %s: http %d", location, resp.StatusCode)
	}
	report := strings.TrimSpace(string(body))
	if report == "" {
		return "", fmt.Errorf("weather: empty report for %s", location)
	}
	return report, nil
}
