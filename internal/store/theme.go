package store

import (
	"sync"

	"github.com/varmina-joyas/store/internal/platform/localstore"
)

// ThemeStore persists the dark-mode preference. The default is light.
type ThemeStore struct {
	local localstore.Store

	mu   sync.Mutex
	dark bool
}

// NewThemeStore constructs a ThemeStore, loading the persisted preference.
func NewThemeStore(local localstore.Store) *ThemeStore {
	t := &ThemeStore{local: local}
	var dark bool
	if localstore.GetJSON(local, localstore.KeyDarkMode, &dark) {
		t.dark = dark
	}
	return t
}

// DarkMode reports the active preference.
func (t *ThemeStore) DarkMode() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dark
}

// SetDarkMode sets and persists the preference.
func (t *ThemeStore) SetDarkMode(dark bool) {
	t.mu.Lock()
	t.dark = dark
	t.mu.Unlock()
	_ = localstore.SetJSON(t.local, localstore.KeyDarkMode, dark)
}

// Toggle flips the preference and returns the new value.
func (t *ThemeStore) Toggle() bool {
	t.mu.Lock()
	t.dark = !t.dark
	dark := t.dark
	t.mu.Unlock()
	_ = localstore.SetJSON(t.local, localstore.KeyDarkMode, dark)
	return dark
}
