package peers

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/kbukum/peerkit/logger"
	"github.com/kbukum/peerkit/observability"
)

// snapshot is an immutable view of the set. It is never modified after
// being published.
type snapshot struct {
	urls  []string
	nodes map[string]*Node
}

var emptySnapshot = &snapshot{nodes: map[string]*Node{}}

// ErrSetClosed is returned by Update once the set has been closed.
var ErrSetClosed = errors.New("peer set closed")

// Set is the live mapping from peer URL to Node.
type Set struct {
	factory NodeFactory
	log     *logger.Logger
	metrics *setMetrics

	// mu serializes Update and Close.
	mu      sync.Mutex
	closed  bool
	current atomic.Pointer[snapshot]
}

// NewSet creates an empty Set.
func NewSet(factory NodeFactory, log *logger.Logger) *Set {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	s := &Set{factory: factory, log: log.WithComponent("peers"), metrics: newSetMetrics()}
	s.current.Store(emptySnapshot)
	return s
}

// Update makes the set equal to desired. Nodes for new URLs are built
// first; if any of them fails the update aborts, the nodes built so far are
// released and the previous set stays in place. Otherwise the new mapping
// is published in one step and nodes for URLs no longer desired are
// released. Release failures are logged, not returned.
func (s *Set) Update(ctx context.Context, desired []string) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSetClosed
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanPeersUpdate)
	defer func() { observability.EndSpan(span, err) }()

	desired = dedupe(desired)
	cur := s.current.Load()

	var toAdd, toRemove []string
	for _, u := range desired {
		if _, ok := cur.nodes[u]; !ok {
			toAdd = append(toAdd, u)
		}
	}
	for _, u := range cur.urls {
		if !slices.Contains(desired, u) {
			toRemove = append(toRemove, u)
		}
	}
	span.SetAttributes(
		attribute.Int(observability.AttrAdded, len(toAdd)),
		attribute.Int(observability.AttrRemoved, len(toRemove)),
	)

	if len(toAdd) == 0 && len(toRemove) == 0 {
		s.metrics.recordUpdate(ctx, resultUnchanged, 0)
		return nil
	}

	built := make(map[string]*Node, len(toAdd))
	for _, u := range toAdd {
		node, buildErr := s.factory.NewNode(u)
		if buildErr != nil {
			s.release(nodesOf(built), "aborted update")
			s.metrics.recordUpdate(ctx, resultFailed, 0)
			return fmt.Errorf("update peers: %w", buildErr)
		}
		built[u] = node
	}

	next := &snapshot{urls: desired, nodes: make(map[string]*Node, len(desired))}
	for _, u := range desired {
		if node, ok := cur.nodes[u]; ok {
			next.nodes[u] = node
		} else {
			next.nodes[u] = built[u]
		}
	}
	s.current.Store(next)

	removed := make([]*Node, 0, len(toRemove))
	for _, u := range toRemove {
		removed = append(removed, cur.nodes[u])
	}
	s.release(removed, "removed peer")

	s.metrics.recordUpdate(ctx, resultApplied, len(toAdd)-len(toRemove))
	s.log.Info("peer set updated", logger.Fields(
		"added", toAdd, "removed", toRemove, "peers", len(desired)))
	return nil
}

// Close releases every node and leaves the set empty. Later updates fail
// with ErrSetClosed.
func (s *Set) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	cur := s.current.Swap(emptySnapshot)
	var errs error
	for _, u := range cur.urls {
		errs = multierr.Append(errs, cur.nodes[u].Close())
	}
	s.metrics.recordUpdate(context.Background(), resultApplied, -len(cur.urls))
	return errs
}

// release closes nodes best-effort and logs the combined error.
func (s *Set) release(nodes []*Node, reason string) {
	var errs error
	for _, n := range nodes {
		if err := n.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", n.URL(), err))
		}
	}
	if errs != nil {
		s.log.Warn("failed to release peer nodes", logger.MergeWithError(logger.Fields("reason", reason), errs))
	}
}

// Nodes returns the current nodes in resolution order.
func (s *Set) Nodes() []*Node {
	cur := s.current.Load()
	out := make([]*Node, 0, len(cur.urls))
	for _, u := range cur.urls {
		out = append(out, cur.nodes[u])
	}
	return out
}

// Node returns the node for peerURL.
func (s *Set) Node(peerURL string) (*Node, bool) {
	n, ok := s.current.Load().nodes[peerURL]
	return n, ok
}

// URLs returns the current peer URLs in resolution order.
func (s *Set) URLs() []string {
	return slices.Clone(s.current.Load().urls)
}

// Len returns the number of peers.
func (s *Set) Len() int {
	return len(s.current.Load().urls)
}

func nodesOf(m map[string]*Node) []*Node {
	out := make([]*Node, 0, len(m))
	for _, n := range m {
		out = append(out, n)
	}
	return out
}

func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
