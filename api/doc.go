// Package api serves the registry's HTTP routes: the local registry
// operations, the peer replication endpoint, the peer listing and the
// configuration refresh trigger.
package api
