package config

import (
	"slices"
	"strings"
)

// KeySet is the set of property keys changed by a single notification.
// Keys are stored lowercased; lookups are case-insensitive.
type KeySet map[string]struct{}

// NewKeySet builds a KeySet from the given keys.
func NewKeySet(keys ...string) KeySet {
	ks := make(KeySet, len(keys))
	for _, k := range keys {
		ks[normalizeKey(k)] = struct{}{}
	}
	return ks
}

// Has reports whether key is in the set.
func (ks KeySet) Has(key string) bool {
	_, ok := ks[normalizeKey(key)]
	return ok
}

// HasPrefix reports whether any key in the set starts with prefix.
func (ks KeySet) HasPrefix(prefix string) bool {
	prefix = normalizeKey(prefix)
	for k := range ks {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}

// Keys returns the keys in sorted order.
func (ks KeySet) Keys() []string {
	keys := make([]string, 0, len(ks))
	for k := range ks {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Len returns the number of keys.
func (ks KeySet) Len() int { return len(ks) }

// ChangeEvent is delivered to Environment listeners after a merge.
type ChangeEvent struct {
	// Source names the layer that changed ("file", "etcd", "refresh", ...).
	Source string
	Keys   KeySet
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
