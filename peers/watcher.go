package peers

import (
	"context"
	"sync"
	"time"

	"github.com/kbukum/peerkit/config"
	"github.com/kbukum/peerkit/logger"
)

// ChangeWatcher recomputes the peer set when a configuration change touches
// the keys that define it.
type ChangeWatcher struct {
	cfg      ClientConfig
	resolver URLResolver
	set      *Set
	log      *logger.Logger

	// refreshMu covers resolve and apply together so an older resolution
	// never lands after a newer one.
	refreshMu sync.Mutex
}

// NewChangeWatcher creates a watcher applying resolver's output to set.
func NewChangeWatcher(cfg ClientConfig, resolver URLResolver, set *Set, log *logger.Logger) *ChangeWatcher {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &ChangeWatcher{cfg: cfg, resolver: resolver, set: set, log: log.WithComponent("peers")}
}

// ShouldUpdate reports whether keys require the peer set to be recomputed.
// In DNS mode the answer is always no; DNS topology is refreshed on its own
// schedule.
func (w *ChangeWatcher) ShouldUpdate(keys config.KeySet) bool {
	if w.cfg.UseDNSForServiceURLs() {
		return false
	}
	if keys.Has(config.KeyRegion) {
		return true
	}
	return keys.HasPrefix(config.PrefixServiceURL) || keys.HasPrefix(config.PrefixAvailabilityZones)
}

// OnChange is a config.Listener. When the event qualifies, the desired URLs
// are resolved and applied before it returns.
func (w *ChangeWatcher) OnChange(ctx context.Context, event config.ChangeEvent) error {
	if !w.ShouldUpdate(event.Keys) {
		return nil
	}
	w.log.Debug("peer topology keys changed", logger.Fields(
		logger.FieldSource, event.Source, logger.FieldKeys, event.Keys.Keys()))
	return w.Refresh(ctx)
}

// Refresh resolves the desired URLs and applies them to the set. A
// resolution error leaves the set untouched.
func (w *ChangeWatcher) Refresh(ctx context.Context) error {
	w.refreshMu.Lock()
	defer w.refreshMu.Unlock()

	start := time.Now()
	urls, err := w.resolver.Resolve(ctx)
	if err != nil {
		w.log.Error("failed to resolve peer urls", logger.ErrorFields("resolve", err))
		return err
	}
	w.log.Debug("peer urls resolved", logger.DurationFields("resolve", time.Since(start)))
	if err := w.set.Update(ctx, urls); err != nil {
		w.log.Error("failed to apply peer urls", logger.ErrorFields("update", err))
		return err
	}
	return nil
}

// Close waits for an in-flight refresh and then releases the set.
func (w *ChangeWatcher) Close() error {
	w.refreshMu.Lock()
	defer w.refreshMu.Unlock()
	return w.set.Close()
}
