// Package nightscout bridges a Nightscout CGM site: "bg" or "glucose"
// replies with the latest sensor reading. The integration is only active
// when a site URL is configured, either in the module config or through
// the NIGHTSCOUT environment variable.
package nightscout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/flemzord/catbot/internal/channel"
	"github.com/flemzord/catbot/internal/command"
	"github.com/flemzord/catbot/internal/core"
	"github.com/flemzord/catbot/internal/router"
	"github.com/flemzord/catbot/internal/security"
	"github.com/flemzord/catbot/internal/stats"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Nightscout{})
}

var (
	_ router.Handler    = (*Nightscout)(nil)
	_ router.Optional   = (*Nightscout)(nil)
	_ core.Configurable = (*Nightscout)(nil)
	_ core.Provisioner  = (*Nightscout)(nil)
	_ core.Validator    = (*Nightscout)(nil)
)

const (
	moduleTag      = "nightscout"
	actionBG       = "bg"
	envURL         = "NIGHTSCOUT"
	envToken       = "NIGHTSCOUT_TOKEN"
	defaultTimeout = 10 * time.Second
	staleAfter     = 15 * time.Minute
	mgdlPerMmol    = 18.0
)

// Units selects how readings are displayed.
const (
	UnitsMgdl = "mg/dl"
	UnitsMmol = "mmol"
)

// ErrNoReading is returned when the site has no current entry.
var ErrNoReading = errors.New("nightscout: no current reading")

// Config holds the Nightscout bridge configuration.
type Config struct {
	// URL of the Nightscout site. Falls back to $NIGHTSCOUT.
	URL string `yaml:"url"`
	// Token is a read-only access token. Falls back to $NIGHTSCOUT_TOKEN.
	Token string `yaml:"token"`
	// Units is mg/dl (default) or mmol.
	Units   string        `yaml:"units"`
	Timeout time.Duration `yaml:"timeout"`
}

// Entry is one sensor glucose value from /api/v1/entries.
type Entry struct {
	SGV       int    `json:"sgv"`
	Direction string `json:"direction"`
	// Date is the reading time in Unix milliseconds.
	Date int64 `json:"date"`
}

// Time returns the reading time.
func (e Entry) Time() time.Time {
	return time.UnixMilli(e.Date)
}

// Nightscout is the glucose command handler.
type Nightscout struct {
	config   Config
	client   *http.Client
	logger   *slog.Logger
	registry []command.Action
	now      func() time.Time
}

// ModuleInfo implements core.Module.
func (n *Nightscout) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "integration.nightscout",
		New: func() core.Module { return &Nightscout{} },
	}
}

// Configure implements core.Configurable.
func (n *Nightscout) Configure(node *yaml.Node) error {
	if err := node.Decode(&n.config); err != nil {
		return fmt.Errorf("nightscout: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner.
func (n *Nightscout) Provision(ctx *core.AppContext) error {
	n.logger = ctx.Logger
	if n.config.URL == "" {
		n.config.URL = os.Getenv(envURL)
	}
	if n.config.Token == "" {
		n.config.Token = os.Getenv(envToken)
	}
	n.config.URL = strings.TrimRight(n.config.URL, "/")
	if n.config.Units == "" {
		n.config.Units = UnitsMgdl
	}
	if n.config.Timeout == 0 {
		n.config.Timeout = defaultTimeout
	}
	if n.now == nil {
		n.now = time.Now
	}
	n.client = &http.Client{Timeout: n.config.Timeout}
	n.registry = []command.Action{
		{
			Name:     actionBG,
			Triggers: []command.Trigger{command.Pattern(`\b(bg|glucose|sugar)\b`, true)},
			Effect:   "Latest glucose reading",
		},
		{
			Name:     command.ActionHelp,
			Triggers: []command.Trigger{command.Word("help", false)},
			Effect:   "This help message",
		},
	}

	if svc, ok := ctx.Service(security.ServiceName); ok {
		if r, ok := svc.(*security.Redactor); ok {
			r.AddLiteral(n.config.Token)
		}
	}
	if !n.Enabled() {
		n.logger.Warn("nightscout url not set, integration disabled", "env", envURL)
	}
	return nil
}

// Validate implements core.Validator. A disabled integration is valid.
func (n *Nightscout) Validate() error {
	if !n.Enabled() {
		return nil
	}
	u, err := url.Parse(n.config.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("nightscout: url must be a valid http/https URL, got %q", n.config.URL)
	}
	switch n.config.Units {
	case UnitsMgdl, UnitsMmol:
	default:
		return fmt.Errorf("nightscout: units must be %q or %q, got %q", UnitsMgdl, UnitsMmol, n.config.Units)
	}
	return nil
}

// Enabled implements router.Optional.
func (n *Nightscout) Enabled() bool {
	return n.config.URL != ""
}

// Name implements router.Handler.
func (n *Nightscout) Name() string { return moduleTag }

// Handle implements router.Handler.
func (n *Nightscout) Handle(ctx context.Context, inv router.Invocation) error {
	ev := inv.Event
	res := command.Match(n.registry, ev.Body)
	if !res.Active {
		return nil
	}

	if res.Action == command.ActionHelp {
		return inv.Emitter.SendText(ctx, channel.Text{
			RoomID: ev.RoomID,
			Body:   command.HelpText("Nightscout", "Glucose readings from Nightscout", n.registry),
			Module: moduleTag,
		})
	}

	entry, err := n.Current(ctx)
	if err != nil {
		return err
	}
	if err := inv.Emitter.SendText(ctx, channel.Text{
		RoomID:  ev.RoomID,
		Body:    n.format(entry),
		ReplyTo: ev.EventID,
		Module:  moduleTag,
	}); err != nil {
		return fmt.Errorf("nightscout: send reading: %w", err)
	}
	inv.Emitter.AddStats(ctx, stats.CounterMsgAction, ev.RoomID, moduleTag, actionBG)
	return nil
}

// Current fetches the latest entry.
func (n *Nightscout) Current(ctx context.Context) (Entry, error) {
	q := url.Values{"count": {"1"}}
	if n.config.Token != "" {
		q.Set("token", n.config.Token)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.config.URL+"/api/v1/entries/current.json?"+q.Encode(), nil)
	if err != nil {
		return Entry{}, fmt.Errorf("nightscout: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return Entry{}, fmt.Errorf("nightscout: fetch current entry: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Entry{}, fmt.Errorf("nightscout: fetch current entry: http %d", resp.StatusCode)
	}

	var entries []Entry
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&entries); err != nil {
		return Entry{}, fmt.Errorf("nightscout: decode entries: %w", err)
	}
	if len(entries) == 0 || entries[0].SGV <= 0 {
		return Entry{}, ErrNoReading
	}
	return entries[0], nil
}

var arrows = map[string]string{
	"DoubleUp":      "⇈",
	"SingleUp":      "↑",
	"FortyFiveUp":   "↗",
	"Flat":          "→",
	"FortyFiveDown": "↘",
	"SingleDown":    "↓",
	"DoubleDown":    "⇊",
}

func (n *Nightscout) format(e Entry) string {
	value := fmt.Sprintf("%d mg/dL", e.SGV)
	if n.config.Units == UnitsMmol {
		value = fmt.Sprintf("%.1f mmol/L", float64(e.SGV)/mgdlPerMmol)
	}
	var b strings.Builder
	b.WriteString("Current BG: <b>")
	b.WriteString(value)
	b.WriteString("</b>")
	if arrow, ok := arrows[e.Direction]; ok {
		b.WriteString(" ")
		b.WriteString(arrow)
	}
	at := e.Time()
	b.WriteString(" (")
	b.WriteString(humanize.RelTime(at, n.now(), "ago", "from now"))
	b.WriteString(")")
	if n.now().Sub(at) > staleAfter {
		b.WriteString(" ⚠️ stale")
	}
	return b.String()
}
