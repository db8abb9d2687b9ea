package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestStoreRoundtrip(t *testing.T) {
	store := NewStoreAt(filepath.Join(t.TempDir(), "config.json"))

	if err := store.Set("github", "ghp_testtoken"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	secret, err := store.Get("github")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if secret != "ghp_testtoken" {
		t.Errorf("expected stored secret, got %q", secret)
	}
}

func TestStoreMultipleServices(t *testing.T) {
	store := NewStoreAt(filepath.Join(t.TempDir(), "config.json"))

	if err := store.Set("github", "token-a"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set("semgrep", "token-b"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	secret, err := store.Get("github")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if secret != "token-a" {
		t.Errorf("expected first secret preserved, got %q", secret)
	}
}

func TestStoreNotConfigured(t *testing.T) {
	store := NewStoreAt(filepath.Join(t.TempDir(), "config.json"))

	_, err := store.Get("github")
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestStorePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	store := NewStoreAt(path)

	if err := store.Set("github", "secret"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected 0600 permissions, got %o", info.Mode().Perm())
	}
}

func TestStoreCorruptFileTreatedAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	store := NewStoreAt(path)
	if _, err := store.Get("github"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured for corrupt file, got %v", err)
	}
}
