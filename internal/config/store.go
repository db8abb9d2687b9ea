package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotConfigured is returned when no secret is stored for a service.
var ErrNotConfigured = errors.New("service not configured")

// Store persists access tokens keyed by service name in the user's config
// directory. Secrets never leave this file except through Get.
type Store struct {
	path string
}

type storeFile struct {
	Tokens map[string]string `json:"tokens"`
}

// NewStore opens (or prepares) the credential store at ~/.repoguard/config.json.
func NewStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate home directory: %w", err)
	}
	return &Store{path: filepath.Join(home, ".repoguard", "config.json")}, nil
}

// NewStoreAt opens a credential store at an explicit path.
func NewStoreAt(path string) *Store {
	return &Store{path: path}
}

// Path returns the location of the backing file.
func (s *Store) Path() string {
	return s.path
}

// Get returns the secret stored for a service, or ErrNotConfigured.
func (s *Store) Get(service string) (string, error) {
	data, err := s.load()
	if err != nil {
		return "", err
	}

	secret, ok := data.Tokens[service]
	if !ok || secret == "" {
		return "", fmt.Errorf("%q: %w", service, ErrNotConfigured)
	}
	return secret, nil
}

// Set stores a secret for a service. The backing file is created with
// owner-only permissions.
func (s *Store) Set(service, secret string) error {
	data, err := s.load()
	if err != nil {
		return err
	}

	if data.Tokens == nil {
		data.Tokens = make(map[string]string)
	}
	data.Tokens[service] = secret

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(s.path, encoded, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	// Tighten permissions on files created before this version.
	return os.Chmod(s.path, 0o600)
}

// load reads the backing file, treating a missing or corrupt file as empty.
func (s *Store) load() (storeFile, error) {
	var data storeFile

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return data, nil
		}
		return data, fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(raw, &data); err != nil {
		return storeFile{}, nil
	}
	return data, nil
}
