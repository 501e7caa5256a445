package peers

import (
	"fmt"
	"net/url"

	"github.com/kbukum/peerkit/errors"
	"github.com/kbukum/peerkit/logger"
	"github.com/kbukum/peerkit/registry"
	"github.com/kbukum/peerkit/validation"
)

// NodeFactory builds the Node for a peer URL.
type NodeFactory interface {
	NewNode(peerURL string) (*Node, error)
}

// ClientFactory builds a replication client for a peer URL. It must not do
// network I/O.
type ClientFactory func(peerURL string) (ReplicationClient, error)

// DefaultNodeFactory builds nodes from a ClientFactory and the local registry.
type DefaultNodeFactory struct {
	clients ClientFactory
	local   registry.Registry
	log     *logger.Logger
}

// NewDefaultNodeFactory creates a factory.
func NewDefaultNodeFactory(clients ClientFactory, local registry.Registry, log *logger.Logger) *DefaultNodeFactory {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &DefaultNodeFactory{clients: clients, local: local, log: log.WithComponent("peers")}
}

// NewNode builds the node for peerURL. A URL without a usable host gets
// PlaceholderHost; a client that cannot be built is a PEER_CONSTRUCTION_FAILED
// error.
func (f *DefaultNodeFactory) NewNode(peerURL string) (*Node, error) {
	host, err := hostFromURL(peerURL)
	if err != nil {
		f.log.Warn("cannot extract host from peer url, using placeholder", logger.Fields(
			logger.FieldPeerURL, peerURL, logger.FieldError, err.Error()))
		host = PlaceholderHost
	}

	client, err := f.clients(peerURL)
	if err != nil {
		return nil, errors.PeerConstruction(peerURL, err)
	}
	return NewNode(peerURL, host, client, f.local), nil
}

func hostFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	host := u.Hostname()
	if !validation.IsHost(host) {
		return "", fmt.Errorf("invalid host %q", host)
	}
	return host, nil
}
