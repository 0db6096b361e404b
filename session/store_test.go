package session

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	if store.Get().Authenticated() {
		t.Fatal("fresh store should not be authenticated")
	}

	if err := store.Set("access-1", "refresh-1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := store.SetTheme("light"); err != nil {
		t.Fatalf("SetTheme() error = %v", err)
	}

	// Reload from disk to verify persistence across restarts.
	reloaded, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() reload error = %v", err)
	}
	got := reloaded.Get()
	if got.AccessToken != "access-1" || got.RefreshToken != "refresh-1" {
		t.Errorf("reloaded session = %+v, want tokens access-1/refresh-1", got)
	}
	if got.Theme != "light" {
		t.Errorf("reloaded theme = %q, want light", got.Theme)
	}
	if !got.Authenticated() {
		t.Error("session with access token should be authenticated")
	}
}

func TestFileStoreSetAccess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if err := store.Set("old-access", "keep-refresh"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := store.SetAccess("new-access"); err != nil {
		t.Fatalf("SetAccess() error = %v", err)
	}
	got := store.Get()
	if got.AccessToken != "new-access" {
		t.Errorf("AccessToken = %q, want new-access", got.AccessToken)
	}
	if got.RefreshToken != "keep-refresh" {
		t.Errorf("RefreshToken = %q, want keep-refresh", got.RefreshToken)
	}
}

func TestFileStoreClearKeepsTheme(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if err := store.Set("a", "r"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := store.SetTheme("light"); err != nil {
		t.Fatalf("SetTheme() error = %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	got := store.Get()
	if got.Authenticated() {
		t.Error("cleared session should not be authenticated")
	}
	if got.RefreshToken != "" {
		t.Error("Clear() should drop the refresh token")
	}
	if got.Theme != "light" {
		t.Errorf("Clear() dropped theme, got %q", got.Theme)
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() on corrupt file error = %v", err)
	}
	if store.Get().Authenticated() {
		t.Error("corrupt session file should behave as logged out")
	}
}
