package docstore

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore is an in-memory Store used by tests and single-session dev
// runs. Safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	docs  map[string][]byte
	notes *notifier
}

// NewMemory returns an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		docs:  make(map[string][]byte),
		notes: newNotifier(),
	}
}

// Read implements Store.
func (s *MemoryStore) Read(ctx context.Context, kp KeyPath) (json.RawMessage, error) {
	if err := kp.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[kp.String()]
	if !ok {
		return nil, ErrNotExist
	}
	out := make(json.RawMessage, len(doc))
	copy(out, doc)
	return out, nil
}

// Write implements Store.
func (s *MemoryStore) Write(ctx context.Context, kp KeyPath, doc json.RawMessage, merge bool) error {
	if err := kp.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path := kp.String()

	s.mu.Lock()
	final := doc
	if stored, ok := s.docs[path]; ok && merge {
		merged, err := mergeDocuments(stored, doc)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		final = merged
	}
	buf := make([]byte, len(final))
	copy(buf, final)
	s.docs[path] = buf
	s.mu.Unlock()

	s.notes.publish(path, json.RawMessage(buf))
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, kp KeyPath) error {
	if err := kp.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path := kp.String()

	s.mu.Lock()
	_, existed := s.docs[path]
	delete(s.docs, path)
	s.mu.Unlock()

	if existed {
		s.notes.publish(path, nil)
	}
	return nil
}

// Subscribe implements Store. The current document (or absence) is delivered
// synchronously before Subscribe returns.
func (s *MemoryStore) Subscribe(ctx context.Context, kp KeyPath, onSnapshot SnapshotFunc, onError ErrorFunc) (UnsubscribeFunc, error) {
	if err := kp.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := kp.String()
	unsubscribe := s.notes.subscribe(path, onSnapshot, onError)

	s.mu.RLock()
	doc, ok := s.docs[path]
	s.mu.RUnlock()
	if ok {
		initial := make(json.RawMessage, len(doc))
		copy(initial, doc)
		onSnapshot(initial)
	} else {
		onSnapshot(nil)
	}
	return unsubscribe, nil
}
