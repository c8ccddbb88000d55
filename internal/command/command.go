// Package command holds the action registry and the trigger matcher: the
// table of recognized commands and the pure function that picks, for a
// message body, the single first-matching action.
package command

import (
	"regexp"
)

// ActionNone is the action name reported when nothing matched.
const ActionNone = "none"

// Trigger is a compiled pattern that selects an action. Each trigger
// carries its own case-sensitivity.
type Trigger struct {
	re *regexp.Regexp
}

// Word returns a trigger that matches w as a whole word. When
// caseInsensitive is false the match is exact-case.
func Word(w string, caseInsensitive bool) Trigger {
	return Pattern(`\b`+regexp.QuoteMeta(w)+`\b`, caseInsensitive)
}

// Pattern compiles expr into a trigger. It panics on an invalid
// expression; registries are static and built at startup.
func Pattern(expr string, caseInsensitive bool) Trigger {
	if caseInsensitive {
		expr = "(?i)" + expr
	}
	return Trigger{re: regexp.MustCompile(expr)}
}

// Match reports whether the trigger fires on body. The zero Trigger
// matches nothing.
func (t Trigger) Match(body string) bool {
	return t.re != nil && t.re.MatchString(body)
}

// String returns the trigger's source expression.
func (t Trigger) String() string {
	if t.re == nil {
		return ""
	}
	return t.re.String()
}

// Action is one recognized command.
type Action struct {
	Name     string
	Triggers []Trigger
	// Effect is a one-line description used only for help text.
	Effect string
}

// DispatchResult is the outcome of matching a body against a registry.
type DispatchResult struct {
	Active bool
	Action string
}

var noMatch = DispatchResult{Active: false, Action: ActionNone}

// Match returns the first action, in registry order, with a trigger that
// matches body. Triggers are tested in declared order and evaluation stops
// at the first success, so earlier actions win ties. An empty body never
// matches.
func Match(registry []Action, body string) DispatchResult {
	if body == "" {
		return noMatch
	}
	for _, a := range registry {
		for _, t := range a.Triggers {
			if t.Match(body) {
				return DispatchResult{Active: true, Action: a.Name}
			}
		}
	}
	return noMatch
}
