package auth

import (
	"context"
	"errors"
	"strings"

	"snap2sell/db"
	"snap2sell/globals"

	"github.com/sirupsen/logrus"
)

// Vault keeps the token pair in durable storage. Every read goes to storage so a login made
// by another process on the same state is picked up.
type Vault struct {
	store db.Storage
	log   logrus.FieldLogger
}

func NewVault(store db.Storage, log logrus.FieldLogger) *Vault {
	return &Vault{store: store, log: log}
}

func (v *Vault) read(ctx context.Context, key string) string {
	val, err := v.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			v.log.WithError(err).WithField("key", key).Warn("Vault read error")
		}
		return ""
	}
	return strings.TrimSpace(val)
}

func (v *Vault) AccessToken(ctx context.Context) string {
	return v.read(ctx, globals.AccessTokenKey)
}

func (v *Vault) RefreshToken(ctx context.Context) string {
	return v.read(ctx, globals.RefreshTokenKey)
}

func (v *Vault) SetAccessToken(ctx context.Context, token string) error {
	return v.store.Set(ctx, globals.AccessTokenKey, token)
}

// SetTokens stores both tokens. An empty refresh token removes any stored one, which may
// belong to an earlier login.
func (v *Vault) SetTokens(ctx context.Context, access, refresh string) error {
	if err := v.store.Set(ctx, globals.AccessTokenKey, access); err != nil {
		return err
	}
	if refresh == "" {
		return v.store.Delete(ctx, globals.RefreshTokenKey)
	}
	return v.store.Set(ctx, globals.RefreshTokenKey, refresh)
}

func (v *Vault) ClearTokens(ctx context.Context) error {
	return v.store.Delete(ctx, globals.AccessTokenKey, globals.RefreshTokenKey)
}
