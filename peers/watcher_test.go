package peers

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/peerkit/config"
	"github.com/kbukum/peerkit/logger"
)

func TestChangeWatcherShouldUpdate(t *testing.T) {
	tests := []struct {
		name string
		dns  bool
		keys config.KeySet
		want bool
	}{
		{"dns mode ignores region", true, config.NewKeySet("eureka.client.region"), false},
		{"dns mode ignores service urls", true, config.NewKeySet("eureka.client.service-url.defaultZone"), false},
		{"dns mode ignores everything", true, config.NewKeySet("eureka.client.region", "eureka.client.availability-zones.us-east-1"), false},
		{"region", false, config.NewKeySet("eureka.client.region"), true},
		{"region among others", false, config.NewKeySet("server.port", "eureka.client.region"), true},
		{"region mixed case", false, config.NewKeySet("Eureka.Client.Region"), true},
		{"service url", false, config.NewKeySet("eureka.client.service-url.zone1"), true},
		{"availability zones", false, config.NewKeySet("eureka.client.availability-zones.us-west-2"), true},
		{"unrelated", false, config.NewKeySet("server.port", "eureka.instance.hostname"), false},
		{"region prefix only", false, config.NewKeySet("eureka.client.region-extra"), false},
		{"empty", false, config.NewKeySet(), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := newFakeConfig()
			cfg.dns = tc.dns
			w := NewChangeWatcher(cfg, NewConfigResolver(cfg, logger.Nop()), newTestSet(newFakeClients()), logger.Nop())
			if got := w.ShouldUpdate(tc.keys); got != tc.want {
				t.Errorf("ShouldUpdate(%v) = %v, want %v", tc.keys.Keys(), got, tc.want)
			}
		})
	}
}

func TestChangeWatcherOnChangeAppliesSynchronously(t *testing.T) {
	cfg := newFakeConfig()
	cfg.urls["defaultZone"] = []string{peerA}
	set := newTestSet(newFakeClients())
	w := NewChangeWatcher(cfg, NewConfigResolver(cfg, logger.Nop()), set, logger.Nop())
	ctx := context.Background()

	if err := w.Refresh(ctx); err != nil {
		t.Fatal(err)
	}

	cfg.urls["defaultZone"] = []string{peerA, peerB}
	err := w.OnChange(ctx, config.ChangeEvent{Source: config.SourceRefresh, Keys: config.NewKeySet("server.port")})
	if err != nil {
		t.Fatal(err)
	}
	if set.Len() != 1 {
		t.Fatalf("expected unrelated change to be ignored, got %v", set.URLs())
	}

	err = w.OnChange(ctx, config.ChangeEvent{Source: config.SourceRefresh, Keys: config.NewKeySet("eureka.client.service-url.defaultZone")})
	if err != nil {
		t.Fatal(err)
	}
	if got := set.URLs(); !slices.Equal(got, []string{peerA, peerB}) {
		t.Errorf("expected [A B] after change, got %v", got)
	}
}

func TestChangeWatcherResolveErrorKeepsSet(t *testing.T) {
	cfg := newFakeConfig()
	cfg.urls["defaultZone"] = []string{peerA}
	set := newTestSet(newFakeClients())
	w := NewChangeWatcher(cfg, NewConfigResolver(cfg, logger.Nop()), set, logger.Nop())
	ctx := context.Background()
	_ = w.Refresh(ctx)

	cfg.urlsErr = fmt.Errorf("unreadable service url")
	err := w.OnChange(ctx, config.ChangeEvent{Keys: config.NewKeySet("eureka.client.region")})
	if err == nil {
		t.Fatal("expected resolve error to be returned")
	}
	if got := set.URLs(); !slices.Equal(got, []string{peerA}) {
		t.Errorf("expected set to remain [A], got %v", got)
	}
}

func TestChangeWatcherConstructionErrorReturned(t *testing.T) {
	cfg := newFakeConfig()
	cfg.urls["defaultZone"] = []string{peerA}
	clients := newFakeClients()
	set := newTestSet(clients)
	w := NewChangeWatcher(cfg, NewConfigResolver(cfg, logger.Nop()), set, logger.Nop())
	ctx := context.Background()
	_ = w.Refresh(ctx)

	clients.fail[peerB] = true
	cfg.urls["defaultZone"] = []string{peerB}
	if err := w.OnChange(ctx, config.ChangeEvent{Keys: config.NewKeySet("eureka.client.service-url.defaultZone")}); err == nil {
		t.Fatal("expected construction error")
	}
	if got := set.URLs(); !slices.Equal(got, []string{peerA}) {
		t.Errorf("expected set to remain [A], got %v", got)
	}
}

func TestChangeWatcherWithEnvironment(t *testing.T) {
	env := config.NewEnvironment(logger.Nop())
	props := config.NewClientProperties(env)
	set := newTestSet(newFakeClients())
	w := NewChangeWatcher(props, NewConfigResolver(props, logger.Nop()), set, logger.Nop())
	env.AddListener(w.OnChange)
	ctx := context.Background()

	_, err := env.Merge(ctx, config.SourceFile, map[string]interface{}{
		"eureka": map[string]interface{}{
			"client": map[string]interface{}{
				"service-url": map[string]interface{}{"defaultZone": peerA + "," + peerB},
			},
		},
	})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if got := set.URLs(); !slices.Equal(got, []string{peerA, peerB}) {
		t.Errorf("expected [A B] from environment, got %v", got)
	}
}

// gatedResolver blocks its first Resolve after the inner resolver has read
// the configuration, until release is closed.
type gatedResolver struct {
	inner   URLResolver
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedResolver(inner URLResolver) *gatedResolver {
	return &gatedResolver{inner: inner, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedResolver) Resolve(ctx context.Context) ([]string, error) {
	urls, err := g.inner.Resolve(ctx)
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return urls, err
}

func TestChangeWatcherRefreshesDoNotInterleave(t *testing.T) {
	cfg := newFakeConfig()
	cfg.urls["defaultZone"] = []string{peerA}
	set := newTestSet(newFakeClients())
	gate := newGatedResolver(NewConfigResolver(cfg, logger.Nop()))
	w := NewChangeWatcher(cfg, gate, set, logger.Nop())
	ctx := context.Background()

	tick := make(chan error, 1)
	go func() { tick <- w.Refresh(ctx) }()
	<-gate.entered

	cfg.urls["defaultZone"] = []string{peerB}
	change := make(chan error, 1)
	go func() {
		change <- w.OnChange(ctx, config.ChangeEvent{Source: config.SourceRefresh, Keys: config.NewKeySet("eureka.client.service-url.defaultZone")})
	}()

	select {
	case <-change:
		t.Fatal("change applied while an earlier refresh was still resolving")
	case <-time.After(50 * time.Millisecond):
	}

	close(gate.release)
	if err := <-tick; err != nil {
		t.Fatal(err)
	}
	if err := <-change; err != nil {
		t.Fatal(err)
	}
	if got := set.URLs(); !slices.Equal(got, []string{peerB}) {
		t.Errorf("expected latest config [B], got %v", got)
	}
}

func TestChangeWatcherCloseWaitsForRefresh(t *testing.T) {
	cfg := newFakeConfig()
	cfg.urls["defaultZone"] = []string{peerA}
	clients := newFakeClients()
	set := newTestSet(clients)
	gate := newGatedResolver(NewConfigResolver(cfg, logger.Nop()))
	w := NewChangeWatcher(cfg, gate, set, logger.Nop())
	ctx := context.Background()

	refreshed := make(chan error, 1)
	go func() { refreshed <- w.Refresh(ctx) }()
	<-gate.entered

	closed := make(chan error, 1)
	go func() { closed <- w.Close() }()
	select {
	case <-closed:
		t.Fatal("Close returned while a refresh was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(gate.release)
	if err := <-refreshed; err != nil {
		t.Fatal(err)
	}
	if err := <-closed; err != nil {
		t.Fatal(err)
	}
	if set.Len() != 0 || clients.count() != 1 || clients.built[0].closeCount() != 1 {
		t.Errorf("expected the refreshed node to be released, len=%d built=%d", set.Len(), clients.count())
	}
	if err := w.Refresh(ctx); err != ErrSetClosed {
		t.Errorf("expected ErrSetClosed after Close, got %v", err)
	}
}
