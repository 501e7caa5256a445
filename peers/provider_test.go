package peers

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/peerkit/component"
	"github.com/kbukum/peerkit/config"
	"github.com/kbukum/peerkit/logger"
)

func newTestWatcher(cfg *fakeConfig, clients *fakeClients) *ChangeWatcher {
	return NewChangeWatcher(cfg, NewConfigResolver(cfg, logger.Nop()), newTestSet(clients), logger.Nop())
}

func TestNewProviderSelectsByMode(t *testing.T) {
	w := newTestWatcher(newFakeConfig(), newFakeClients())
	env := config.NewEnvironment(logger.Nop())

	p, err := NewProvider(Config{Mode: ModeStatic}, w, env, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(*StaticProvider); !ok {
		t.Errorf("expected StaticProvider, got %T", p)
	}

	p, err = NewProvider(Config{}, w, env, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(*ReactiveProvider); !ok {
		t.Errorf("expected ReactiveProvider by default, got %T", p)
	}

	if _, err := NewProvider(Config{Mode: "gossip"}, w, env, logger.Nop()); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestStaticProviderIgnoresChanges(t *testing.T) {
	cfg := newFakeConfig()
	cfg.urls["defaultZone"] = []string{peerA}
	clients := newFakeClients()
	p := NewStaticProvider(newTestWatcher(cfg, clients), logger.Nop())
	ctx := context.Background()

	if err := p.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if got := p.Set().URLs(); !slices.Equal(got, []string{peerA}) {
		t.Fatalf("expected [A], got %v", got)
	}
	h := p.Health(ctx)
	if h.Status != component.StatusHealthy || h.Message != "1 peers" {
		t.Errorf("unexpected health %+v", h)
	}

	if err := p.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	if p.Set().Len() != 0 || clients.built[0].closeCount() != 1 {
		t.Error("expected Stop to release every node")
	}
}

func TestStaticProviderStartFailure(t *testing.T) {
	cfg := newFakeConfig()
	cfg.urls["defaultZone"] = []string{peerA}
	clients := newFakeClients()
	clients.fail[peerA] = true
	p := NewStaticProvider(newTestWatcher(cfg, clients), logger.Nop())

	if err := p.Start(context.Background()); err == nil {
		t.Fatal("expected start to fail")
	}
	if h := p.Health(context.Background()); h.Status != component.StatusDegraded {
		t.Errorf("expected degraded health, got %+v", h)
	}
}

func TestReactiveProviderFollowsEnvironment(t *testing.T) {
	env := config.NewEnvironment(logger.Nop())
	props := config.NewClientProperties(env)
	clients := newFakeClients()
	w := NewChangeWatcher(props, NewConfigResolver(props, logger.Nop()), newTestSet(clients), logger.Nop())
	p := NewReactiveProvider(w, env, -1, logger.Nop())
	ctx := context.Background()

	if err := p.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if p.Set().Len() != 0 {
		t.Fatalf("expected standalone start, got %v", p.Set().URLs())
	}

	if _, err := env.Merge(ctx, config.SourceRefresh, map[string]interface{}{
		"eureka.client.service-url.defaultZone": peerA,
	}); err != nil {
		t.Fatal(err)
	}
	if got := p.Set().URLs(); !slices.Equal(got, []string{peerA}) {
		t.Fatalf("expected [A] after change, got %v", got)
	}

	clients.fail[peerB] = true
	if _, err := env.Merge(ctx, config.SourceRefresh, map[string]interface{}{
		"eureka.client.service-url.defaultZone": peerB,
	}); err == nil {
		t.Fatal("expected merge to report the failed topology update")
	}
	if got := p.Set().URLs(); !slices.Equal(got, []string{peerA}) {
		t.Errorf("expected [A] to remain, got %v", got)
	}
	if h := p.Health(ctx); h.Status != component.StatusDegraded {
		t.Errorf("expected degraded health, got %+v", h)
	}

	if err := p.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	clients.fail[peerB] = false
	_, _ = env.Merge(ctx, config.SourceRefresh, map[string]interface{}{
		"eureka.client.service-url.defaultZone": peerC,
	})
	if p.Set().Len() != 0 {
		t.Errorf("expected no updates after Stop, got %v", p.Set().URLs())
	}
}

func TestReactiveProviderPeriodicRefresh(t *testing.T) {
	cfg := newFakeConfig()
	cfg.dns = true
	cfg.dnsName = "eureka.example.com"

	var mu sync.Mutex
	hosts := []string{"ec2-1.example.com"}
	lookup := func(ctx context.Context, name string) ([]string, error) {
		if name == "txt.us-east-1.eureka.example.com" {
			return []string{"zone-a"}, nil
		}
		mu.Lock()
		defer mu.Unlock()
		return slices.Clone(hosts), nil
	}
	resolver := NewConfigResolver(cfg, logger.Nop()).WithTXTLookup(lookup)
	w := NewChangeWatcher(cfg, resolver, newTestSet(newFakeClients()), logger.Nop())
	p := NewReactiveProvider(w, nil, 10*time.Millisecond, logger.Nop())
	ctx := context.Background()

	if err := p.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = p.Stop(ctx) }()

	if p.Set().Len() != 1 {
		t.Fatalf("expected 1 peer at start, got %v", p.Set().URLs())
	}

	mu.Lock()
	hosts = append(hosts, "ec2-2.example.com")
	mu.Unlock()

	deadline := time.Now().Add(2 * time.Second)
	for p.Set().Len() != 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected periodic refresh to pick up new host, got %v", p.Set().URLs())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
