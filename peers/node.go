package peers

import (
	"context"

	"github.com/kbukum/peerkit/errors"
	"github.com/kbukum/peerkit/registry"
)

// PlaceholderHost is the host label of a node whose URL has no usable host.
const PlaceholderHost = "host"

// ReplicationClient pushes registry mutations to one peer.
type ReplicationClient interface {
	Register(ctx context.Context, inst registry.Instance) error
	Cancel(ctx context.Context, app, id string) error
	Heartbeat(ctx context.Context, inst registry.Instance) error
	StatusUpdate(ctx context.Context, app, id string, status registry.Status) error
	Close() error
}

// Node is one replication peer.
type Node struct {
	url    string
	host   string
	client ReplicationClient
	local  registry.Registry
}

// NewNode wraps client for the peer at url.
func NewNode(url, host string, client ReplicationClient, local registry.Registry) *Node {
	return &Node{url: url, host: host, client: client, local: local}
}

func (n *Node) URL() string                      { return n.url }
func (n *Node) Host() string                     { return n.host }
func (n *Node) Client() ReplicationClient        { return n.client }
func (n *Node) LocalRegistry() registry.Registry { return n.local }

func (n *Node) Register(ctx context.Context, inst registry.Instance) error {
	return n.client.Register(ctx, inst)
}

func (n *Node) Cancel(ctx context.Context, app, id string) error {
	return n.client.Cancel(ctx, app, id)
}

// Heartbeat renews inst on the peer. A peer that does not know the
// instance gets it registered again from the local registry.
func (n *Node) Heartbeat(ctx context.Context, inst registry.Instance) error {
	err := n.client.Heartbeat(ctx, inst)
	if !errors.HasCode(err, errors.ErrCodeNotFound) {
		return err
	}
	if n.local != nil {
		if current, ok := n.local.Get(inst.App, inst.ID); ok {
			inst = current
		}
	}
	return n.client.Register(ctx, inst)
}

func (n *Node) StatusUpdate(ctx context.Context, app, id string, status registry.Status) error {
	return n.client.StatusUpdate(ctx, app, id, status)
}

// Close releases the replication client.
func (n *Node) Close() error {
	return n.client.Close()
}
