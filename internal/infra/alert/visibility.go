package alert

import (
	"sync"

	"pulse/internal/domain/service"
)

// VisibilityTracker is the host-driven implementation of the visibility
// source: the embedding application reports focus/hide transitions and the
// tracker fans the "visible again" edge out to subscribers.
type VisibilityTracker struct {
	mu          sync.Mutex
	hidden      bool
	subscribers map[int]func()
	nextID      int
}

// NewVisibilityTracker creates a tracker that starts visible.
func NewVisibilityTracker() *VisibilityTracker {
	return &VisibilityTracker{subscribers: make(map[int]func())}
}

var _ service.Visibility = (*VisibilityTracker)(nil)

// SetVisible records a visibility transition. Subscribers fire only on the
// hidden-to-visible edge.
func (t *VisibilityTracker) SetVisible(visible bool) {
	t.mu.Lock()
	wasHidden := t.hidden
	t.hidden = !visible

	var callbacks []func()
	if visible && wasHidden {
		callbacks = make([]func(), 0, len(t.subscribers))
		for _, fn := range t.subscribers {
			callbacks = append(callbacks, fn)
		}
	}
	t.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

// Hidden reports whether the window is currently not visible.
func (t *VisibilityTracker) Hidden() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.hidden
}

// OnVisible registers a callback for the hidden-to-visible edge. The
// returned function cancels the registration.
func (t *VisibilityTracker) OnVisible(fn func()) (cancel func()) {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.subscribers[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.subscribers, id)
		t.mu.Unlock()
	}
}
