package config

import (
	"slices"
	"strings"
)

// Resolve returns the configured module IDs in load order: stats stores
// first (so the counter service exists before anything wires to it), then
// the rest sorted.
func Resolve(cfg *Config) []string {
	ids := make([]string, 0, len(cfg.Modules))
	for id := range cfg.Modules {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		sa, sb := strings.HasPrefix(a, "stats."), strings.HasPrefix(b, "stats.")
		if sa != sb {
			if sa {
				return -1
			}
			return 1
		}
		return strings.Compare(a, b)
	})
	return ids
}
