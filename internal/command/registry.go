package command

// Scope selects which universal actions a registry contains.
type Scope string

const (
	// ScopeBase is the command set every room gets.
	ScopeBase Scope = "base"
	// ScopeAdmin adds operator commands (stats, uptime) to the base set.
	ScopeAdmin Scope = "admin"
)

// Universal action names.
const (
	ActionAbout   = "about"
	ActionHelp    = "help"
	ActionVersion = "version"
	ActionStats   = "stats"
	ActionUptime  = "uptime"
)

// BuildRegistry returns the universal actions for scope, in match order.
// Unknown scopes get the base set. The case-sensitivity of each trigger is
// deliberate per action: about and version ignore case, the rest do not.
func BuildRegistry(scope Scope) []Action {
	actions := []Action{
		{
			Name:     ActionAbout,
			Triggers: []Trigger{Word("about", true)},
			Effect:   "Find out about catBot",
		},
		{
			Name:     ActionHelp,
			Triggers: []Trigger{Word("help", false)},
			Effect:   "This help message",
		},
		{
			Name:     ActionVersion,
			Triggers: []Trigger{Word("version", true)},
			Effect:   "Get catBot version number",
		},
	}
	if scope != ScopeAdmin {
		return actions
	}
	return append(actions,
		Action{
			Name:     ActionStats,
			Triggers: []Trigger{Word("stats", false)},
			Effect:   "Show message statistics for this room",
		},
		Action{
			Name:     ActionUptime,
			Triggers: []Trigger{Word("uptime", false)},
			Effect:   "Show how long catBot has been running",
		},
	)
}
