package db

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const sealedPrefix = "sealed:v1:"

var ErrSealBroken = errors.New("sealed value cannot be opened")

// SealedStore encrypts the values of selected keys before handing them to the wrapped Storage.
// Values written before sealing was enabled are returned as-is.
type SealedStore struct {
	Storage
	sealed map[string]bool
	key    []byte
}

// NewSealedStore derives a key from secret with argon2id and seals the given keys.
func NewSealedStore(inner Storage, secret string, keys ...string) *SealedStore {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return &SealedStore{
		Storage: inner,
		sealed:  set,
		key:     argon2.IDKey([]byte(secret), []byte("snap2sell/client-state"), 1, 64*1024, 4, chacha20poly1305.KeySize),
	}
}

func (s *SealedStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.Storage.Get(ctx, key)
	if err != nil || !s.sealed[key] || !strings.HasPrefix(v, sealedPrefix) {
		return v, err
	}
	return s.open(strings.TrimPrefix(v, sealedPrefix))
}

func (s *SealedStore) Set(ctx context.Context, key, value string) error {
	if !s.sealed[key] {
		return s.Storage.Set(ctx, key, value)
	}
	sealed, err := s.seal(value)
	if err != nil {
		return err
	}
	return s.Storage.Set(ctx, key, sealedPrefix+sealed)
}

// Watch forwards to the wrapped store when it supports watching.
func (s *SealedStore) Watch(ctx context.Context) (<-chan string, error) {
	w, ok := s.Storage.(Watcher)
	if !ok {
		return nil, nil
	}
	return w.Watch(ctx)
}

func (s *SealedStore) seal(plain string) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plain)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	out := aead.Seal(nonce, nonce, []byte(plain), nil)
	return base64.RawStdEncoding.EncodeToString(out), nil
}

func (s *SealedStore) open(encoded string) (string, error) {
	raw, err := base64.RawStdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrSealBroken
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}
	if len(raw) < aead.NonceSize() {
		return "", ErrSealBroken
	}
	nonce, ct := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", ErrSealBroken
	}
	return string(plain), nil
}
