package registry

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/kbukum/peerkit/errors"
	"github.com/kbukum/peerkit/logger"
)

// Memory is an in-memory Registry.
type Memory struct {
	log *logger.Logger
	now func() time.Time

	mu   sync.RWMutex
	apps map[string]map[string]Instance

	replMu     sync.RWMutex
	replicator Replicator
}

var _ Registry = (*Memory)(nil)

// NewMemory creates an empty registry.
func NewMemory(log *logger.Logger) *Memory {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Memory{
		log:  log.WithComponent("registry"),
		now:  time.Now,
		apps: make(map[string]map[string]Instance),
	}
}

// SetReplicator installs the replicator used for local mutations. The peer
// set needs the registry to exist first, so this is set after construction.
func (m *Memory) SetReplicator(r Replicator) {
	m.replMu.Lock()
	m.replicator = r
	m.replMu.Unlock()
}

func (m *Memory) Register(ctx context.Context, inst Instance, isReplication bool) error {
	inst.App = NormalizeApp(inst.App)
	if inst.Status == "" {
		inst.Status = StatusUp
	}
	inst.LastUpdated = m.now().UnixMilli()

	m.mu.Lock()
	byID, ok := m.apps[inst.App]
	if !ok {
		byID = make(map[string]Instance)
		m.apps[inst.App] = byID
	}
	byID[inst.ID] = inst
	m.mu.Unlock()

	m.log.Debug("instance registered", logger.Fields("app", inst.App, "id", inst.ID, "replication", isReplication))
	m.replicate(ctx, isReplication, ActionRegister, inst)
	return nil
}

func (m *Memory) Cancel(ctx context.Context, app, id string, isReplication bool) error {
	app = NormalizeApp(app)

	m.mu.Lock()
	inst, ok := m.apps[app][id]
	if ok {
		delete(m.apps[app], id)
		if len(m.apps[app]) == 0 {
			delete(m.apps, app)
		}
	}
	m.mu.Unlock()

	if !ok {
		return errors.NotFound("instance", app+"/"+id)
	}
	m.replicate(ctx, isReplication, ActionCancel, inst)
	return nil
}

// Renew refreshes an instance. An unknown instance is NOT_FOUND, which
// tells a replicating peer to register it again.
func (m *Memory) Renew(ctx context.Context, app, id string, isReplication bool) error {
	app = NormalizeApp(app)

	m.mu.Lock()
	inst, ok := m.apps[app][id]
	if ok {
		inst.LastUpdated = m.now().UnixMilli()
		m.apps[app][id] = inst
	}
	m.mu.Unlock()

	if !ok {
		return errors.NotFound("instance", app+"/"+id)
	}
	m.replicate(ctx, isReplication, ActionHeartbeat, inst)
	return nil
}

func (m *Memory) StatusUpdate(ctx context.Context, app, id string, status Status, isReplication bool) error {
	app = NormalizeApp(app)

	m.mu.Lock()
	inst, ok := m.apps[app][id]
	if ok {
		inst.Status = status
		inst.LastUpdated = m.now().UnixMilli()
		m.apps[app][id] = inst
	}
	m.mu.Unlock()

	if !ok {
		return errors.NotFound("instance", app+"/"+id)
	}
	m.replicate(ctx, isReplication, ActionStatusUpdate, inst)
	return nil
}

func (m *Memory) Get(app, id string) (Instance, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.apps[NormalizeApp(app)][id]
	return inst, ok
}

// Applications returns every application sorted by name, instances sorted by ID.
func (m *Memory) Applications() []Application {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Application, 0, len(m.apps))
	for name, byID := range m.apps {
		app := Application{Name: name, Instances: make([]Instance, 0, len(byID))}
		for _, inst := range byID {
			app.Instances = append(app.Instances, inst)
		}
		slices.SortFunc(app.Instances, func(a, b Instance) int { return strings.Compare(a.ID, b.ID) })
		out = append(out, app)
	}
	slices.SortFunc(out, func(a, b Application) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Len returns the number of registered instances.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, byID := range m.apps {
		n += len(byID)
	}
	return n
}

// replicate forwards a local mutation. Peer failures do not fail the local
// operation; the replicator reports them and they are logged here.
func (m *Memory) replicate(ctx context.Context, isReplication bool, action Action, inst Instance) {
	if isReplication {
		return
	}
	m.replMu.RLock()
	r := m.replicator
	m.replMu.RUnlock()
	if r == nil {
		return
	}
	if err := r.Replicate(ctx, action, inst); err != nil {
		m.log.Warn("replication to peers failed", logger.Fields(
			"action", string(action), "app", inst.App, "id", inst.ID, logger.FieldError, err.Error()))
	}
}
