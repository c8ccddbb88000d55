// Package security keeps secrets out of catbot's output: a Redactor that
// masks access tokens and API secrets, and a slog handler that applies it
// to every log record.
package security

import (
	"regexp"
	"strings"
	"sync"
)

// ServiceName is the AppContext service key the shared Redactor is
// registered under. Modules add their secrets to it during Provision.
const ServiceName = "security.redactor"

// RedactPlaceholder is the replacement string for redacted secrets.
const RedactPlaceholder = "***REDACTED***"

// secretKeyPattern matches map keys that likely hold secrets.
var secretKeyPattern = regexp.MustCompile(`(?i)(secret|token|pass(word)?$|api_key|credential)`)

// Redactor replaces secrets in strings and maps with RedactPlaceholder.
// Known token formats are matched by pattern; runtime secrets (configured
// access tokens) are added as literals. Safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	patterns []*regexp.Regexp
	literals []string
}

// NewRedactor creates a Redactor loaded with DefaultPatterns.
func NewRedactor() *Redactor {
	return &Redactor{patterns: DefaultPatterns()}
}

// AddPattern adds a compiled pattern.
func (r *Redactor) AddPattern(pattern *regexp.Regexp) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns = append(r.patterns, pattern)
}

// AddLiteral adds a secret value to mask verbatim. Empty strings and
// duplicates are ignored.
func (r *Redactor) AddLiteral(secret string) {
	if secret == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.literals {
		if l == secret {
			return
		}
	}
	r.literals = append(r.literals, secret)
}

// Redact masks every pattern match and literal in s.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}

	r.mu.RLock()
	patterns := r.patterns
	literals := r.literals
	r.mu.RUnlock()

	for _, p := range patterns {
		s = p.ReplaceAllString(s, RedactPlaceholder)
	}
	for _, lit := range literals {
		s = strings.ReplaceAll(s, lit, RedactPlaceholder)
	}
	return s
}

// RedactMap masks, in place, string values under secret-looking keys and
// any pattern or literal found in other string values. Nested maps and
// lists of maps are walked. Used when printing a loaded config.
func (r *Redactor) RedactMap(m map[string]any) {
	for k, v := range m {
		if s, ok := v.(string); ok && s != "" && secretKeyPattern.MatchString(k) {
			m[k] = RedactPlaceholder
			continue
		}
		switch val := v.(type) {
		case map[string]any:
			r.RedactMap(val)
		case []any:
			for i, item := range val {
				switch sub := item.(type) {
				case map[string]any:
					r.RedactMap(sub)
				case string:
					val[i] = r.Redact(sub)
				}
			}
		case string:
			m[k] = r.Redact(val)
		}
	}
}

// DefaultPatterns returns patterns for the credentials catbot handles.
func DefaultPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		// Synapse access tokens: syt_<localpart b64>_<random>_<crc>
		regexp.MustCompile(`syt_[A-Za-z0-9]+_[A-Za-z0-9]+_[A-Za-z0-9]+`),
		// Matrix Authentication Service compat tokens.
		regexp.MustCompile(`mct_[A-Za-z0-9]{16,}`),
		// Authorization headers.
		regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._~+/=-]{8,}`),
		// Tokens in query strings.
		regexp.MustCompile(`access_token=[^&\s"']+`),
		// Nightscout access tokens: <subject>-<16 hex>
		regexp.MustCompile(`token=[a-z0-9]+-[0-9a-f]{16}`),
	}
}
