package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flemzord/catbot/internal/config"
	"github.com/flemzord/catbot/internal/core"
	"github.com/flemzord/catbot/internal/stats"
	"github.com/flemzord/catbot/internal/stats/statstest"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"
)

var errStoreDown = errors.New("database is locked")

// brokenStore fails every read.
type brokenStore struct{ stats.Store }

func (brokenStore) Snapshot(context.Context, string) ([]stats.Entry, error) {
	return nil, errStoreDown
}

func mustYAMLNode(t *testing.T, src string) *yaml.Node {
	t.Helper()
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	return doc.Content[0]
}

// newTestGateway provisions a gateway against an AppContext carrying store
// and a shared registry, resolves services, and serves its router.
func newTestGateway(t *testing.T, cfgYAML string, store stats.Store) (*Gateway, *httptest.Server, *prometheus.Registry) {
	t.Helper()

	appCtx := core.NewAppContext(slog.New(slog.NewTextHandler(io.Discard, nil)), t.TempDir())
	reg := prometheus.NewRegistry()
	appCtx.RegisterService(RegistryServiceName, reg)
	appCtx.RegisterService(config.BotServiceName, &config.BotConfig{Name: "catBot", Version: "2.1.0"})
	if store != nil {
		appCtx.RegisterService(stats.ServiceName, store)
	}

	g := &Gateway{now: func() time.Time { return time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC) }}
	if err := g.Configure(mustYAMLNode(t, cfgYAML)); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := g.Provision(appCtx); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	g.resolveServices()
	g.startedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(g.buildRouter())
	t.Cleanup(srv.Close)
	return g, srv, reg
}

func seededStore(t *testing.T) *statstest.MockStore {
	t.Helper()
	store := statstest.NewMockStore()
	ctx := context.Background()
	for _, add := range []struct {
		key   stats.Key
		delta int64
	}{
		{stats.Key{Counter: stats.CounterProcessed, Room: "!a:hs"}, 10},
		{stats.Key{Counter: stats.CounterActivity, Room: "!a:hs", Module: "universal"}, 3},
		{stats.Key{Counter: stats.CounterProcessed, Room: "!b:hs"}, 5},
	} {
		if err := store.Add(ctx, add.key, add.delta); err != nil {
			t.Fatal(err)
		}
	}
	return store
}

func get(t *testing.T, url, bearer string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}
