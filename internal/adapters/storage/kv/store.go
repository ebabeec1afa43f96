// Package kv is the durable key-value substrate behind persisted session state.
// Values are opaque JSON documents addressed by (scope, namespace).
package kv

import "context"

// Store defines the interface for scoped key-value persistence.
// A session reads all of its namespaces at once when it opens and writes one
// namespace per committed mutation.
type Store interface {
	// Put writes value under (scope, namespace), replacing any previous value.
	// PRE: scope and namespace are non-empty; value is a complete serialized snapshot
	// POST: a following List of scope returns value under namespace
	Put(ctx context.Context, scope, namespace string, value []byte) error

	// List returns every namespace stored for scope.
	// POST: map is non-nil, keyed by namespace
	List(ctx context.Context, scope string) (map[string][]byte, error)

	// DeleteScope removes every namespace stored for scope.
	DeleteScope(ctx context.Context, scope string) error
}
