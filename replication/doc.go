// Package replication carries registry mutations between peer servers.
//
// Client is the outbound transport: each peer node owns one, and every
// mutation is sent as a single-item batch to the peer's
// peerreplication/batch/ endpoint. Dispatcher fans a local mutation out to
// every node of the current peer set. Apply is the inbound side, applying a
// batch received from a peer to the local registry without replicating it
// again.
package replication
