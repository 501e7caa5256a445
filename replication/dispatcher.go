package replication

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"github.com/kbukum/peerkit/logger"
	"github.com/kbukum/peerkit/peers"
	"github.com/kbukum/peerkit/registry"
)

// NodeSource exposes the current peer nodes. *peers.Set implements it.
type NodeSource interface {
	Nodes() []*peers.Node
}

// Dispatcher forwards local registry mutations to every current peer.
type Dispatcher struct {
	nodes NodeSource
	log   *logger.Logger
}

var _ registry.Replicator = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher reading nodes on every call.
func NewDispatcher(nodes NodeSource, log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Dispatcher{nodes: nodes, log: log.WithComponent("replication")}
}

// Replicate sends action to all peers in parallel and returns their
// combined errors. The peer set is read once, so a concurrent topology
// update does not affect a dispatch in progress.
func (d *Dispatcher) Replicate(ctx context.Context, action registry.Action, inst registry.Instance) error {
	nodes := d.nodes.Nodes()
	if len(nodes) == 0 {
		return nil
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)
	for _, n := range nodes {
		wg.Add(1)
		go func(n *peers.Node) {
			defer wg.Done()
			if err := dispatch(ctx, n, action, inst); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", n.URL(), err))
				mu.Unlock()
			}
		}(n)
	}
	wg.Wait()

	if errs != nil {
		d.log.Debug("replication incomplete", logger.Fields(
			"action", string(action), "peers", len(nodes), "failed", len(multierr.Errors(errs))))
	}
	return errs
}

func dispatch(ctx context.Context, n *peers.Node, action registry.Action, inst registry.Instance) error {
	switch action {
	case registry.ActionRegister:
		return n.Register(ctx, inst)
	case registry.ActionCancel:
		return n.Cancel(ctx, inst.App, inst.ID)
	case registry.ActionHeartbeat:
		return n.Heartbeat(ctx, inst)
	case registry.ActionStatusUpdate:
		return n.StatusUpdate(ctx, inst.App, inst.ID, inst.Status)
	default:
		return fmt.Errorf("unknown replication action %q", action)
	}
}
