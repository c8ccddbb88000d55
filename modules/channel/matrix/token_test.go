package matrix

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestTokenStore_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "matrix", "sync_token")

	store := newTokenStore(path, discardLogger())
	got, err := store.LoadNextBatch(ctx, "@cat:hs")
	if err != nil || got != "" {
		t.Fatalf("LoadNextBatch() on missing file = %q, %v", got, err)
	}
	if err := store.SaveNextBatch(ctx, "@cat:hs", "s42_7"); err != nil {
		t.Fatalf("SaveNextBatch() error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat token file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}

	got, err = newTokenStore(path, discardLogger()).LoadNextBatch(ctx, "@cat:hs")
	if err != nil || got != "s42_7" {
		t.Errorf("reload = %q, %v", got, err)
	}
}

func TestTokenStore_InMemory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTokenStore("", discardLogger())
	if err := store.SaveNextBatch(ctx, "@cat:hs", "s1"); err != nil {
		t.Fatalf("SaveNextBatch() error: %v", err)
	}
	if got, _ := store.LoadNextBatch(ctx, "@cat:hs"); got != "s1" {
		t.Errorf("LoadNextBatch() = %q, want s1", got)
	}
}

func TestTokenStore_FilterIDNotPersisted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sync_token")
	store := newTokenStore(path, discardLogger())
	if err := store.SaveFilterID(ctx, "@cat:hs", "f1"); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.LoadFilterID(ctx, "@cat:hs"); got != "f1" {
		t.Errorf("LoadFilterID() = %q, want f1", got)
	}
	if got, _ := newTokenStore(path, discardLogger()).LoadFilterID(ctx, "@cat:hs"); got != "" {
		t.Errorf("fresh store LoadFilterID() = %q, want empty", got)
	}
}

func TestTokenStore_UnreadableFileStartsFresh(t *testing.T) {
	t.Parallel()
	// A directory in place of the token file makes ReadFile fail.
	path := t.TempDir()
	got, err := newTokenStore(path, discardLogger()).LoadNextBatch(context.Background(), "@cat:hs")
	if err != nil || got != "" {
		t.Errorf("LoadNextBatch() = %q, %v, want empty token and no error", got, err)
	}
}
