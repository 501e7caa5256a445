// Package peers manages the set of peer registry servers this server
// replicates to.
//
// A URLResolver derives the desired peer URLs from the client
// configuration (region, availability zones, per-zone service URLs, or DNS
// TXT records). Set.Update reconciles the live nodes against that list:
// new URLs get a Node built by a NodeFactory, stale nodes are released, and
// nodes present in both are kept as they are. Readers see an immutable
// snapshot, either the one before an update or the one after it.
//
// A ChangeWatcher decides for each configuration change whether the
// topology must be recomputed. A TopologyProvider owns the Set for the
// lifetime of the server: the StaticProvider resolves once at start, the
// ReactiveProvider also follows configuration changes.
package peers
