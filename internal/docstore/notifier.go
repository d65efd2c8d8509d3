package docstore

import (
	"encoding/json"
	"sync"
)

// notifier is the in-process subscription hub shared by all backends.
// Snapshots are delivered synchronously in the writer's goroutine; listeners
// that need to do slow work must hand off themselves.
type notifier struct {
	mu     sync.Mutex
	subs   map[string]map[int]subscriber
	nextID int
}

type subscriber struct {
	onSnapshot SnapshotFunc
	onError    ErrorFunc
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[string]map[int]subscriber)}
}

// subscribe registers a listener and returns its release function. Releasing
// twice is harmless.
func (n *notifier) subscribe(path string, onSnapshot SnapshotFunc, onError ErrorFunc) UnsubscribeFunc {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.subs[path] == nil {
		n.subs[path] = make(map[int]subscriber)
	}
	id := n.nextID
	n.nextID++
	n.subs[path][id] = subscriber{onSnapshot: onSnapshot, onError: onError}

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if m, ok := n.subs[path]; ok {
			delete(m, id)
			if len(m) == 0 {
				delete(n.subs, path)
			}
		}
	}
}

// publish delivers a snapshot to every listener at the path. A nil document
// signals absence (the document was deleted).
func (n *notifier) publish(path string, doc json.RawMessage) {
	for _, sub := range n.listeners(path) {
		if sub.onSnapshot != nil {
			sub.onSnapshot(doc)
		}
	}
}

// fail reports a delivery failure to every listener at the path.
func (n *notifier) fail(path string, err error) {
	for _, sub := range n.listeners(path) {
		if sub.onError != nil {
			sub.onError(err)
		}
	}
}

// listeners copies the subscriber set so delivery happens outside the lock;
// a listener may unsubscribe from within its own callback.
func (n *notifier) listeners(path string) []subscriber {
	n.mu.Lock()
	defer n.mu.Unlock()
	m := n.subs[path]
	out := make([]subscriber, 0, len(m))
	for _, sub := range m {
		out = append(out, sub)
	}
	return out
}
