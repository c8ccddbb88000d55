// Package securitytest provides test doubles for the security package.
package securitytest

import (
	"bytes"
	"log/slog"
	"sync"

	"github.com/flemzord/catbot/internal/security"
)

// NewTestRedactor creates a Redactor with no default patterns, so test
// fixtures that look like tokens are left alone unless added as literals.
func NewTestRedactor() *security.Redactor {
	return &security.Redactor{}
}

// LogBuffer captures log output for assertions. Safe for concurrent use.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns everything logged so far.
func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// NewCapturingLogger returns a debug-level logger that redacts through r
// and writes to the returned buffer.
func NewCapturingLogger(r *security.Redactor) (*slog.Logger, *LogBuffer) {
	buf := &LogBuffer{}
	return security.NewLogger(buf, slog.LevelDebug, "text", r), buf
}
