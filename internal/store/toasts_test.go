package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/varmina-joyas/store/internal/domain"
)

func newTestNotifier(ttl time.Duration) *Notifier {
	counter := 0
	return NewNotifier(
		WithToastTTL(ttl),
		WithToastIDGenerator(func() string {
			counter++
			return fmt.Sprintf("toast-%d", counter)
		}),
	)
}

func TestNotifierPushAndActiveOrder(t *testing.T) {
	n := newTestNotifier(time.Minute)

	first := n.Success("producto creado")
	second := n.Error("no se pudo guardar")

	active := n.Active()
	if len(active) != 2 {
		t.Fatalf("expected 2 active toasts, got %d", len(active))
	}
	if active[0].ID != first || active[1].ID != second {
		t.Fatalf("expected arrival order, got %v", active)
	}
	if active[0].Level != domain.ToastSuccess || active[1].Level != domain.ToastError {
		t.Fatalf("unexpected levels: %v", active)
	}
}

func TestNotifierDismissIsIdempotent(t *testing.T) {
	n := newTestNotifier(time.Minute)

	id := n.Info("hola")
	n.Dismiss(id)
	n.Dismiss(id)
	n.Dismiss("never-existed")

	if active := n.Active(); len(active) != 0 {
		t.Fatalf("expected empty queue, got %v", active)
	}
}

func TestNotifierToastsExpire(t *testing.T) {
	n := newTestNotifier(10 * time.Millisecond)

	n.Success("fugaz")

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(n.Active()) == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("expected toast to expire")
}
