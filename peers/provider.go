package peers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/peerkit/component"
	"github.com/kbukum/peerkit/config"
	"github.com/kbukum/peerkit/logger"
)

// TopologyProvider owns the peer Set for the lifetime of the server.
type TopologyProvider interface {
	component.Component
	Set() *Set
}

// Subscriber delivers configuration change events. config.Environment
// implements it.
type Subscriber interface {
	AddListener(l config.Listener) func()
}

// NewProvider returns the provider selected by cfg.Mode.
func NewProvider(cfg Config, watcher *ChangeWatcher, changes Subscriber, log *logger.Logger) (TopologyProvider, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Mode == ModeStatic {
		return NewStaticProvider(watcher, log), nil
	}
	return NewReactiveProvider(watcher, changes, cfg.RefreshInterval, log), nil
}

// baseProvider carries what both providers share.
type baseProvider struct {
	watcher *ChangeWatcher
	log     *logger.Logger

	mu      sync.Mutex
	lastErr error
}

func (b *baseProvider) Set() *Set { return b.watcher.set }

func (b *baseProvider) refresh(ctx context.Context) error {
	err := b.watcher.Refresh(ctx)
	b.setErr(err)
	return err
}

func (b *baseProvider) setErr(err error) {
	b.mu.Lock()
	b.lastErr = err
	b.mu.Unlock()
}

func (b *baseProvider) health(name string) component.Health {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.watcher.set.Len()
	if b.lastErr != nil {
		return component.Health{
			Name:    name,
			Status:  component.StatusDegraded,
			Message: fmt.Sprintf("%d peers, last update failed: %v", n, b.lastErr),
		}
	}
	return component.Health{Name: name, Status: component.StatusHealthy, Message: fmt.Sprintf("%d peers", n)}
}

// StaticProvider resolves the peer set once at start.
type StaticProvider struct {
	baseProvider
}

var _ TopologyProvider = (*StaticProvider)(nil)

// NewStaticProvider creates a StaticProvider.
func NewStaticProvider(watcher *ChangeWatcher, log *logger.Logger) *StaticProvider {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &StaticProvider{baseProvider{watcher: watcher, log: log.WithComponent("peers")}}
}

func (p *StaticProvider) Name() string { return "peers" }

// Start applies the initial peer set. A failure aborts startup.
func (p *StaticProvider) Start(ctx context.Context) error {
	if err := p.refresh(ctx); err != nil {
		return fmt.Errorf("initial peer resolution: %w", err)
	}
	p.log.Info("static peer topology ready", logger.Fields("peers", p.Set().URLs()))
	return nil
}

// Stop releases every peer node.
func (p *StaticProvider) Stop(ctx context.Context) error {
	return p.watcher.Close()
}

func (p *StaticProvider) Health(ctx context.Context) component.Health {
	return p.health(p.Name())
}

func (p *StaticProvider) Describe() component.Description {
	return component.Description{Name: "Peers", Type: "topology", Details: fmt.Sprintf("mode=static peers=%d", p.Set().Len())}
}

// ReactiveProvider applies the peer set at start, then follows
// configuration changes and optionally re-resolves on an interval.
type ReactiveProvider struct {
	baseProvider
	changes  Subscriber
	interval time.Duration

	unsubscribe func()
	cancel      context.CancelFunc
	done        chan struct{}
}

var _ TopologyProvider = (*ReactiveProvider)(nil)

// NewReactiveProvider creates a ReactiveProvider. A non-positive interval
// disables periodic refresh.
func NewReactiveProvider(watcher *ChangeWatcher, changes Subscriber, interval time.Duration, log *logger.Logger) *ReactiveProvider {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &ReactiveProvider{
		baseProvider: baseProvider{watcher: watcher, log: log.WithComponent("peers")},
		changes:      changes,
		interval:     interval,
	}
}

func (p *ReactiveProvider) Name() string { return "peers" }

// Start applies the initial set, subscribes to changes and starts the
// refresh loop.
func (p *ReactiveProvider) Start(ctx context.Context) error {
	if err := p.refresh(ctx); err != nil {
		return fmt.Errorf("initial peer resolution: %w", err)
	}
	if p.changes != nil {
		p.unsubscribe = p.changes.AddListener(p.onChange)
	}
	if p.interval > 0 {
		loopCtx, cancel := context.WithCancel(context.Background())
		p.cancel = cancel
		p.done = make(chan struct{})
		go p.loop(loopCtx)
	}
	p.log.Info("reactive peer topology ready", logger.Fields(
		"peers", p.Set().URLs(), "refresh_interval", p.interval.String()))
	return nil
}

func (p *ReactiveProvider) onChange(ctx context.Context, event config.ChangeEvent) error {
	if !p.watcher.ShouldUpdate(event.Keys) {
		return nil
	}
	err := p.watcher.OnChange(ctx, event)
	p.setErr(err)
	return err
}

func (p *ReactiveProvider) loop(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.refresh(ctx); err != nil {
				p.log.Warn("periodic peer refresh failed", logger.ErrorFields("refresh", err))
			}
		}
	}
}

// Stop unsubscribes, stops the refresh loop and releases every node.
func (p *ReactiveProvider) Stop(ctx context.Context) error {
	if p.unsubscribe != nil {
		p.unsubscribe()
		p.unsubscribe = nil
	}
	if p.cancel != nil {
		p.cancel()
		select {
		case <-p.done:
		case <-ctx.Done():
		}
		p.cancel = nil
	}
	return p.watcher.Close()
}

func (p *ReactiveProvider) Health(ctx context.Context) component.Health {
	return p.health(p.Name())
}

func (p *ReactiveProvider) Describe() component.Description {
	return component.Description{
		Name:    "Peers",
		Type:    "topology",
		Details: fmt.Sprintf("mode=reactive peers=%d refresh=%s", p.Set().Len(), p.interval),
	}
}
