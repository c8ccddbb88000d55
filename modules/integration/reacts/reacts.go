// Package reacts adds emoji reactions to messages that mention cats or the
// bot. It runs on every admitted message, gate or no gate.
package reacts

import (
	"context"
	"errors"
	"fmt"

	"github.com/flemzord/catbot/internal/command"
	"github.com/flemzord/catbot/internal/core"
	"github.com/flemzord/catbot/internal/router"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Reacts{})
}

var (
	_ router.Reactor    = (*Reacts)(nil)
	_ core.Configurable = (*Reacts)(nil)
	_ core.Provisioner  = (*Reacts)(nil)
	_ core.Validator    = (*Reacts)(nil)
)

const moduleTag = "reacts"

// Rule maps a regular expression to an emoji.
type Rule struct {
	Pattern    string `yaml:"pattern"`
	Emoji      string `yaml:"emoji"`
	IgnoreCase bool   `yaml:"ignore_case"`
}

// Config holds the reactions configuration.
type Config struct {
	// Rules replace the default rule set when non-empty.
	Rules []Rule `yaml:"rules"`
	// Mention is the emoji used when the bot is mentioned. Empty disables.
	Mention *string `yaml:"mention"`
}

var defaultRules = []Rule{
	{Pattern: `\b(cat|cats|kitty|kitten|kittens)\b`, Emoji: "🐱", IgnoreCase: true},
	{Pattern: `\bme+o+w+\b`, Emoji: "😺", IgnoreCase: true},
	{Pattern: `\bpurr+\b`, Emoji: "😻", IgnoreCase: true},
	{Pattern: `\b(dog|dogs|puppy)\b`, Emoji: "🙀", IgnoreCase: true},
}

const defaultMention = "👀"

type compiled struct {
	trigger command.Trigger
	emoji   string
}

// Reacts is the reactive emoji module.
type Reacts struct {
	config Config
	rules  []compiled
}

// ModuleInfo implements core.Module.
func (r *Reacts) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "integration.reacts",
		New: func() core.Module { return &Reacts{} },
	}
}

// Configure implements core.Configurable.
func (r *Reacts) Configure(node *yaml.Node) error {
	if err := node.Decode(&r.config); err != nil {
		return fmt.Errorf("reacts: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner. Patterns are compiled here; an
// invalid one fails provisioning rather than panicking.
func (r *Reacts) Provision(_ *core.AppContext) error {
	rules := r.config.Rules
	if len(rules) == 0 {
		rules = defaultRules
	}
	if r.config.Mention == nil {
		m := defaultMention
		r.config.Mention = &m
	}

	r.rules = r.rules[:0]
	for i, rule := range rules {
		trigger, err := compile(rule)
		if err != nil {
			return fmt.Errorf("reacts: rules[%d]: %w", i, err)
		}
		r.rules = append(r.rules, compiled{trigger: trigger, emoji: rule.Emoji})
	}
	return nil
}

func compile(rule Rule) (t command.Trigger, err error) {
	if rule.Emoji == "" {
		return t, errors.New("emoji is required")
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("invalid pattern %q: %v", rule.Pattern, p)
		}
	}()
	return command.Pattern(rule.Pattern, rule.IgnoreCase), nil
}

// Validate implements core.Validator.
func (r *Reacts) Validate() error {
	if len(r.rules) == 0 && (r.config.Mention == nil || *r.config.Mention == "") {
		return errors.New("reacts: no rules and no mention emoji configured")
	}
	return nil
}

// Name implements router.Reactor.
func (r *Reacts) Name() string { return moduleTag }

// React implements router.Reactor. Every matching rule adds its emoji
// once; a mention of the bot adds the mention emoji.
func (r *Reacts) React(ctx context.Context, inv router.Invocation) error {
	ev := inv.Event
	seen := make(map[string]struct{}, len(r.rules)+1)
	react := func(emoji string) {
		if _, dup := seen[emoji]; dup {
			return
		}
		seen[emoji] = struct{}{}
		inv.Emitter.SendReaction(ctx, ev.RoomID, ev.EventID, emoji, moduleTag)
	}

	if m := r.config.Mention; m != nil && *m != "" && ev.Mentions(inv.SelfID) {
		react(*m)
	}
	for _, rule := range r.rules {
		if rule.trigger.Match(ev.Body) {
			react(rule.emoji)
		}
	}
	return nil
}
