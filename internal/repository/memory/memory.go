package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/nkiryanov/mondoauth/internal/apperrors"
	"github.com/nkiryanov/mondoauth/internal/models"
)

// In-process credential store
// Values are lost on restart, use it for tests or short-lived sessions
type Store struct {
	mu    sync.RWMutex
	slots map[models.Slot]string
}

func New() *Store {
	return &Store{slots: make(map[models.Slot]string)}
}

func (s *Store) Get(_ context.Context, slot models.Slot) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.slots[slot]
	if !ok {
		return "", fmt.Errorf("slot %s: %w", slot, apperrors.ErrCredentialNotSet)
	}
	return value, nil
}

func (s *Store) Set(_ context.Context, slot models.Slot, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.slots[slot] = value
	return nil
}

func (s *Store) Delete(_ context.Context, slot models.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.slots, slot)
	return nil
}

func (s *Store) IsSet(_ context.Context, slot models.Slot) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.slots[slot]
	return ok, nil
}
