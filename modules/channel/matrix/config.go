package matrix

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"maunium.net/go/mautrix"
)

const (
	defaultRatePerSec = 2.0
	defaultBurst      = 5
	defaultTokenFile  = "sync_token"
)

// Config holds the Matrix channel configuration.
type Config struct {
	Homeserver  string `yaml:"homeserver"`
	AccessToken string `yaml:"access_token"`
	// UserID, when set, must match the account the token belongs to.
	UserID string `yaml:"user_id"`

	// Filter is an inline sync filter as JSON, uploaded once per process.
	// Empty uses a filter that only delivers room messages.
	Filter string `yaml:"filter"`

	// AutoJoin accepts room invites. Defaults to true.
	AutoJoin *bool `yaml:"auto_join"`
	// Rooms restricts the bot to these room IDs. Empty means every room.
	Rooms []string `yaml:"rooms"`
	// IgnoreUsers are senders whose events are never dispatched.
	IgnoreUsers []string `yaml:"ignore_users"`

	// SendRate and SendBurst throttle outbound events.
	SendRate  float64 `yaml:"send_rate"`
	SendBurst int     `yaml:"send_burst"`

	// SyncTokenFile persists the sync position. Defaults to
	// {DataDir}/matrix/sync_token.
	SyncTokenFile string `yaml:"sync_token_file"`
}

// defaults applies default values to unset fields.
func (c *Config) defaults() {
	c.Homeserver = strings.TrimRight(c.Homeserver, "/")
	if c.Filter == "" {
		c.Filter = defaultFilter
	}
	if c.AutoJoin == nil {
		t := true
		c.AutoJoin = &t
	}
	if c.SendRate == 0 {
		c.SendRate = defaultRatePerSec
	}
	if c.SendBurst == 0 {
		c.SendBurst = defaultBurst
	}
}

func (c *Config) autoJoin() bool {
	return c.AutoJoin == nil || *c.AutoJoin
}

// syncFilter decodes Filter for the syncer.
func (c *Config) syncFilter() (*mautrix.Filter, error) {
	var f mautrix.Filter
	if err := json.Unmarshal([]byte(c.Filter), &f); err != nil {
		return nil, fmt.Errorf("matrix: filter is not valid JSON: %w", err)
	}
	return &f, nil
}

// validate checks configuration field constraints after defaults.
func (c *Config) validate() error {
	var errs []error
	if c.Homeserver == "" {
		errs = append(errs, errors.New("matrix: homeserver is required"))
	} else if u, err := url.Parse(c.Homeserver); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("matrix: homeserver must be a valid http/https URL, got %q", c.Homeserver))
	}
	if c.AccessToken == "" {
		errs = append(errs, errors.New("matrix: access_token is required"))
	}
	if c.UserID != "" && (!strings.HasPrefix(c.UserID, "@") || !strings.Contains(c.UserID, ":")) {
		errs = append(errs, fmt.Errorf("matrix: user_id must look like @name:server, got %q", c.UserID))
	}
	if _, err := c.syncFilter(); err != nil {
		errs = append(errs, err)
	}
	if c.SendRate < 0 {
		errs = append(errs, fmt.Errorf("matrix: send_rate must be non-negative, got %v", c.SendRate))
	}
	if c.SendBurst < 1 {
		errs = append(errs, fmt.Errorf("matrix: send_burst must be at least 1, got %d", c.SendBurst))
	}
	return errors.Join(errs...)
}

// defaultFilter limits /sync to room messages and invites: no presence,
// no account data, lazily loaded members.
const defaultFilter = `{"presence":{"not_types":["*"]},"account_data":{"not_types":["*"]},` +
	`"room":{"timeline":{"types":["m.room.message"],"limit":50},` +
	`"state":{"lazy_load_members":true},"ephemeral":{"not_types":["*"]},"account_data":{"not_types":["*"]}}}`
