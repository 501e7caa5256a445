// Package registry is the local instance store of the server. Mutations
// that originate locally are handed to a Replicator, which forwards them to
// every peer; mutations received from a peer are applied without being
// replicated again.
package registry
