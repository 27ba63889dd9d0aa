// Package store holds the client-state orchestration layer: catalog and cart
// stores, the session gate, the admin view controller, and UI notification
// plumbing.
package store

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/varmina-joyas/store/internal/domain"
)

const defaultToastTTL = 3 * time.Second

// Notifier queues transient toast notifications for a renderer. Toasts expire
// on their own after the configured TTL; dismissal is idempotent.
type Notifier struct {
	ttl   time.Duration
	newID func() string

	mu     sync.Mutex
	active []domain.Toast
	timers map[string]*time.Timer
}

// NotifierOption customises Notifier construction.
type NotifierOption func(*Notifier)

// WithToastTTL overrides the auto-expiry duration.
func WithToastTTL(ttl time.Duration) NotifierOption {
	return func(n *Notifier) {
		if ttl > 0 {
			n.ttl = ttl
		}
	}
}

// WithToastIDGenerator overrides toast id generation (useful for tests).
func WithToastIDGenerator(gen func() string) NotifierOption {
	return func(n *Notifier) {
		if gen != nil {
			n.newID = gen
		}
	}
}

// NewNotifier constructs an empty notifier.
func NewNotifier(opts ...NotifierOption) *Notifier {
	n := &Notifier{
		ttl:    defaultToastTTL,
		newID:  func() string { return ulid.Make().String() },
		timers: make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}
	return n
}

// Push enqueues a toast and schedules its expiry. The toast id is returned so
// callers can dismiss it early.
func (n *Notifier) Push(level domain.ToastLevel, message string) string {
	toast := domain.Toast{ID: n.newID(), Level: level, Message: message}

	n.mu.Lock()
	n.active = append(n.active, toast)
	n.timers[toast.ID] = time.AfterFunc(n.ttl, func() {
		n.Dismiss(toast.ID)
	})
	n.mu.Unlock()

	return toast.ID
}

// Success enqueues a success toast.
func (n *Notifier) Success(message string) string {
	return n.Push(domain.ToastSuccess, message)
}

// Error enqueues an error toast.
func (n *Notifier) Error(message string) string {
	return n.Push(domain.ToastError, message)
}

// Info enqueues an informational toast.
func (n *Notifier) Info(message string) string {
	return n.Push(domain.ToastInfo, message)
}

// Dismiss removes a toast. Dismissing an unknown or already-expired id is a
// no-op, so the expiry timer and a manual dismissal never conflict.
func (n *Notifier) Dismiss(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if timer, ok := n.timers[id]; ok {
		timer.Stop()
		delete(n.timers, id)
	}
	for i := range n.active {
		if n.active[i].ID == id {
			n.active = append(n.active[:i], n.active[i+1:]...)
			return
		}
	}
}

// Active returns a snapshot of the queued toasts in arrival order.
func (n *Notifier) Active() []domain.Toast {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.Toast, len(n.active))
	copy(out, n.active)
	return out
}
