package store

import (
	"testing"

	"github.com/varmina-joyas/store/internal/platform/localstore"
)

func TestThemeDefaultsToLight(t *testing.T) {
	theme := NewThemeStore(localstore.NewMemStore())
	if theme.DarkMode() {
		t.Fatal("expected light mode by default")
	}
}

func TestThemeTogglePersists(t *testing.T) {
	local := localstore.NewMemStore()
	theme := NewThemeStore(local)

	if got := theme.Toggle(); !got {
		t.Fatal("expected toggle to enable dark mode")
	}

	reloaded := NewThemeStore(local)
	if !reloaded.DarkMode() {
		t.Fatal("expected dark mode to survive reload")
	}

	reloaded.SetDarkMode(false)
	if NewThemeStore(local).DarkMode() {
		t.Fatal("expected light mode to survive reload")
	}
}
