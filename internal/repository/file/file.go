package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/nkiryanov/mondoauth/internal/apperrors"
	"github.com/nkiryanov/mondoauth/internal/models"
)

// Credential store persisted as a JSON document readable by the owner only
// Every write rewrites the whole document through a temp file + rename
type Store struct {
	path string

	mu sync.Mutex
}

func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Get(_ context.Context, slot models.Slot) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots, err := s.load()
	if err != nil {
		return "", err
	}

	value, ok := slots[slot]
	if !ok {
		return "", fmt.Errorf("slot %s: %w", slot, apperrors.ErrCredentialNotSet)
	}
	return value, nil
}

func (s *Store) Set(_ context.Context, slot models.Slot, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots, err := s.load()
	if err != nil {
		return err
	}

	slots[slot] = value
	return s.save(slots)
}

func (s *Store) Delete(_ context.Context, slot models.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots, err := s.load()
	if err != nil {
		return err
	}

	if _, ok := slots[slot]; !ok {
		return nil
	}

	delete(slots, slot)
	return s.save(slots)
}

func (s *Store) IsSet(_ context.Context, slot models.Slot) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots, err := s.load()
	if err != nil {
		return false, err
	}

	_, ok := slots[slot]
	return ok, nil
}

// Missing file means no credentials stored yet
func (s *Store) load() (map[models.Slot]string, error) {
	slots := make(map[models.Slot]string)

	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return slots, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	if err := json.Unmarshal(data, &slots); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return slots, nil
}

func (s *Store) save(slots map[models.Slot]string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	data, err := json.MarshalIndent(slots, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	defer os.Remove(tmp.Name()) // nolint:errcheck

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}
