package sealed

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/nkiryanov/mondoauth/internal/models"
	"github.com/nkiryanov/mondoauth/internal/repository"
)

const nonceSize = 24

var ErrCorrupted = errors.New("sealed credential can not be opened")

// Store encrypts every slot value before handing it to the wrapped store
// Slot names stay in clear text, only values are sealed
type Store struct {
	inner repository.CredentialStore
	key   [32]byte
}

// Key is derived from the secret with sha256, so any non empty secret works
func New(inner repository.CredentialStore, secret string) (*Store, error) {
	if secret == "" {
		return nil, errors.New("secret must not be empty")
	}

	return &Store{
		inner: inner,
		key:   sha256.Sum256([]byte(secret)),
	}, nil
}

func (s *Store) Get(ctx context.Context, slot models.Slot) (string, error) {
	sealed, err := s.inner.Get(ctx, slot)
	if err != nil {
		return "", err
	}

	return s.open(sealed)
}

func (s *Store) Set(ctx context.Context, slot models.Slot, value string) error {
	sealed, err := s.seal(value)
	if err != nil {
		return err
	}

	return s.inner.Set(ctx, slot, sealed)
}

func (s *Store) Delete(ctx context.Context, slot models.Slot) error {
	return s.inner.Delete(ctx, slot)
}

func (s *Store) IsSet(ctx context.Context, slot models.Slot) (bool, error) {
	return s.inner.IsSet(ctx, slot)
}

func (s *Store) seal(value string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("error while generating nonce. Err: %w", err)
	}

	box := secretbox.Seal(nonce[:], []byte(value), &nonce, &s.key)
	return base64.RawStdEncoding.EncodeToString(box), nil
}

func (s *Store) open(sealed string) (string, error) {
	box, err := base64.RawStdEncoding.DecodeString(sealed)
	if err != nil || len(box) < nonceSize+secretbox.Overhead {
		return "", ErrCorrupted
	}

	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])

	value, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrCorrupted
	}
	return string(value), nil
}
