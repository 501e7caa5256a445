package config

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/kbukum/peerkit/errors"
	"github.com/kbukum/peerkit/logger"
)

// Source names used by the built-in property sources.
const (
	SourceFile    = "file"
	SourceEtcd    = "etcd"
	SourceRefresh = "refresh"
)

// Listener receives change events. It runs synchronously on the goroutine
// that performed the merge and must not call Merge itself.
type Listener func(ctx context.Context, event ChangeEvent) error

// Environment is a live, layered property store. Each source owns one
// layer of flattened properties; later layers override earlier ones.
type Environment struct {
	log *logger.Logger

	// mergeMu serializes merges together with listener delivery.
	mergeMu sync.Mutex

	mu        sync.RWMutex
	order     []string
	layers    map[string]map[string]interface{}
	effective map[string]interface{}

	listenerMu sync.RWMutex
	listeners  map[int]Listener
	nextID     int

	file *viper.Viper
}

// NewEnvironment creates an empty Environment.
func NewEnvironment(log *logger.Logger) *Environment {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Environment{
		log:       log.WithComponent("environment"),
		layers:    make(map[string]map[string]interface{}),
		effective: make(map[string]interface{}),
		listeners: make(map[int]Listener),
	}
}

// AddListener registers l and returns a function that removes it.
func (e *Environment) AddListener(l Listener) func() {
	e.listenerMu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = l
	e.listenerMu.Unlock()

	return func() {
		e.listenerMu.Lock()
		delete(e.listeners, id)
		e.listenerMu.Unlock()
	}
}

// Merge replaces the layer owned by source with values, which may be
// nested maps or dotted keys. Listeners are notified with the keys whose
// effective value was added, modified or removed. Listener errors are
// combined and returned; the merged values stay applied regardless.
func (e *Environment) Merge(ctx context.Context, source string, values map[string]interface{}) (KeySet, error) {
	e.mergeMu.Lock()
	defer e.mergeMu.Unlock()

	flat := make(map[string]interface{})
	flatten("", values, flat)

	e.mu.Lock()
	if _, ok := e.layers[source]; !ok {
		e.order = append(e.order, source)
	}
	e.layers[source] = flat
	next := e.compose()
	changed := diff(e.effective, next)
	e.effective = next
	e.mu.Unlock()

	if changed.Len() == 0 {
		return changed, nil
	}
	e.log.Debug("properties changed", logger.Fields(logger.FieldSource, source, logger.FieldKeys, changed.Keys()))
	return changed, e.notify(ctx, ChangeEvent{Source: source, Keys: changed})
}

// RemoveSource drops the layer owned by source and notifies listeners.
func (e *Environment) RemoveSource(ctx context.Context, source string) (KeySet, error) {
	e.mergeMu.Lock()
	defer e.mergeMu.Unlock()

	e.mu.Lock()
	if _, ok := e.layers[source]; !ok {
		e.mu.Unlock()
		return NewKeySet(), nil
	}
	delete(e.layers, source)
	e.order = slices.DeleteFunc(e.order, func(s string) bool { return s == source })
	next := e.compose()
	changed := diff(e.effective, next)
	e.effective = next
	e.mu.Unlock()

	if changed.Len() == 0 {
		return changed, nil
	}
	return changed, e.notify(ctx, ChangeEvent{Source: source, Keys: changed})
}

func (e *Environment) notify(ctx context.Context, event ChangeEvent) error {
	e.listenerMu.RLock()
	ids := make([]int, 0, len(e.listeners))
	for id := range e.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, e.listeners[id])
	}
	e.listenerMu.RUnlock()

	var errs error
	for _, l := range listeners {
		errs = multierr.Append(errs, l(ctx, event))
	}
	return errs
}

// compose must be called with mu held.
func (e *Environment) compose() map[string]interface{} {
	out := make(map[string]interface{})
	for _, src := range e.order {
		for k, v := range e.layers[src] {
			out[k] = v
		}
	}
	return out
}

func diff(prev, next map[string]interface{}) KeySet {
	changed := NewKeySet()
	for k, v := range next {
		old, ok := prev[k]
		if !ok || !reflect.DeepEqual(old, v) {
			changed[k] = struct{}{}
		}
	}
	for k := range prev {
		if _, ok := next[k]; !ok {
			changed[k] = struct{}{}
		}
	}
	return changed
}

func flatten(prefix string, in map[string]interface{}, out map[string]interface{}) {
	for k, v := range in {
		key := normalizeKey(k)
		if prefix != "" {
			key = prefix + "." + key
		}
		switch child := v.(type) {
		case map[string]interface{}:
			flatten(key, child, out)
		case map[interface{}]interface{}:
			flatten(key, cast.ToStringMap(child), out)
		default:
			out[key] = v
		}
	}
}

// Get returns the raw value for key.
func (e *Environment) Get(key string) (interface{}, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.effective[normalizeKey(key)]
	return v, ok
}

// Has reports whether key is set.
func (e *Environment) Has(key string) bool {
	_, ok := e.Get(key)
	return ok
}

// GetString returns the value for key as a string, or "" if unset.
func (e *Environment) GetString(key string) string {
	v, ok := e.Get(key)
	if !ok {
		return ""
	}
	return strings.TrimSpace(cast.ToString(v))
}

// GetBool returns the value for key as a bool, or def when unset. A value
// that does not convert is a configuration-read error.
func (e *Environment) GetBool(key string, def bool) (bool, error) {
	v, ok := e.Get(key)
	if !ok {
		return def, nil
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return def, errors.ConfigRead(key, err)
	}
	return b, nil
}

// GetStringSliceE returns a list value. Strings are split on commas and
// every element is trimmed; empty elements are dropped.
func (e *Environment) GetStringSliceE(key string) ([]string, bool, error) {
	v, ok := e.Get(key)
	if !ok {
		return nil, false, nil
	}
	var raw []string
	switch val := v.(type) {
	case string:
		raw = strings.Split(val, ",")
	default:
		items, err := cast.ToStringSliceE(v)
		if err != nil {
			return nil, true, errors.ConfigRead(key, err)
		}
		for _, item := range items {
			raw = append(raw, strings.Split(item, ",")...)
		}
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, true, nil
}

// Keys returns every effective key in sorted order.
func (e *Environment) Keys() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	keys := make([]string, 0, len(e.effective))
	for k := range e.effective {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// LoadFile reads a viper-supported file and merges it as the file layer.
func (e *Environment) LoadFile(ctx context.Context, path string) (KeySet, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.ConfigRead(path, err)
	}
	e.mu.Lock()
	e.file = v
	e.mu.Unlock()
	return e.Merge(ctx, SourceFile, v.AllSettings())
}

// Reload re-reads the loaded file and merges the result. Without a loaded
// file it returns an empty KeySet.
func (e *Environment) Reload(ctx context.Context) (KeySet, error) {
	e.mu.RLock()
	v := e.file
	e.mu.RUnlock()
	if v == nil {
		return NewKeySet(), nil
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.ConfigRead(v.ConfigFileUsed(), err)
	}
	return e.Merge(ctx, SourceFile, v.AllSettings())
}

// WatchFile merges the loaded file again whenever it changes on disk.
// Viper cannot stop a watch, so events after ctx is done are ignored.
func (e *Environment) WatchFile(ctx context.Context) error {
	e.mu.RLock()
	v := e.file
	e.mu.RUnlock()
	if v == nil {
		return fmt.Errorf("no config file loaded")
	}

	v.OnConfigChange(func(ev fsnotify.Event) {
		if ctx.Err() != nil {
			return
		}
		keys, err := e.Merge(ctx, SourceFile, v.AllSettings())
		if err != nil {
			e.log.Error("config change handling failed", logger.Fields(
				"file", ev.Name, logger.FieldError, err.Error()))
			return
		}
		if keys.Len() > 0 {
			e.log.Info("config file changed", logger.Fields("file", ev.Name, logger.FieldKeys, keys.Keys()))
		}
	})
	v.WatchConfig()
	return nil
}
