// Package docstore defines the remote document service the synchronization
// core is built on: a hierarchical key-path addressed read/write/subscribe
// store with pluggable backends (memory, sqlite, postgres).
//
// Documents are opaque JSON at this layer. Validation, sanitization and
// timestamp normalization happen above, in the repository.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotExist signals that no document is stored at the requested key path.
// Callers distinguish "not yet created" from "failed to read" with this
// sentinel.
var ErrNotExist = errors.New("docstore: document does not exist")

// KeyPath is the ordered segment tuple addressing a document, e.g.
// {"users", "u1", "lists", "tasks"}.
type KeyPath []string

// String joins the segments with "/". Used as the storage key and in logs.
func (kp KeyPath) String() string {
	return strings.Join(kp, "/")
}

// Validate rejects empty paths and empty segments. A malformed key path is
// a programmer error surfaced before any network work.
func (kp KeyPath) Validate() error {
	if len(kp) == 0 {
		return errors.New("docstore: empty key path")
	}
	for i, seg := range kp {
		if seg == "" {
			return fmt.Errorf("docstore: empty segment at index %d", i)
		}
		if strings.Contains(seg, "/") {
			return fmt.Errorf("docstore: segment %q contains separator", seg)
		}
	}
	return nil
}

// SnapshotFunc receives each document snapshot pushed to a subscriber.
// A nil document means the document is absent at the key path.
type SnapshotFunc func(doc json.RawMessage)

// ErrorFunc receives subscription delivery failures.
type ErrorFunc func(err error)

// UnsubscribeFunc releases a subscription. Callers must invoke it when the
// owning context goes away; nothing releases listeners automatically.
type UnsubscribeFunc func()

// Store is the document service contract. Backends push an initial snapshot
// on Subscribe, then one snapshot per write or delete at the key path.
// Subscriptions are in-process; cross-process change feeds are a deployment
// concern outside this core.
type Store interface {
	// Read returns the document at the key path, or ErrNotExist.
	Read(ctx context.Context, kp KeyPath) (json.RawMessage, error)
	// Write stores the document. With merge set, the incoming document is
	// recursively merged over the stored one; otherwise it replaces it.
	Write(ctx context.Context, kp KeyPath, doc json.RawMessage, merge bool) error
	// Delete removes the document. Deleting an absent document is a no-op.
	Delete(ctx context.Context, kp KeyPath) error
	// Subscribe registers a push listener at the key path.
	Subscribe(ctx context.Context, kp KeyPath, onSnapshot SnapshotFunc, onError ErrorFunc) (UnsubscribeFunc, error)
}

// mergeDocuments recursively merges the incoming JSON object over the stored
// one. Non-object values and arrays are replaced wholesale.
func mergeDocuments(stored, incoming json.RawMessage) (json.RawMessage, error) {
	var base, overlay map[string]any
	if err := json.Unmarshal(stored, &base); err != nil {
		return nil, fmt.Errorf("docstore: decode stored document: %w", err)
	}
	if err := json.Unmarshal(incoming, &overlay); err != nil {
		return nil, fmt.Errorf("docstore: decode incoming document: %w", err)
	}
	merged, err := json.Marshal(mergeMaps(base, overlay))
	if err != nil {
		return nil, fmt.Errorf("docstore: encode merged document: %w", err)
	}
	return merged, nil
}

func mergeMaps(base, overlay map[string]any) map[string]any {
	for k, v := range overlay {
		if ov, ok := v.(map[string]any); ok {
			if bv, ok := base[k].(map[string]any); ok {
				base[k] = mergeMaps(bv, ov)
				continue
			}
		}
		base[k] = v
	}
	return base
}
