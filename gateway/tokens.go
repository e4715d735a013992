package gateway

import "context"

// TokenStore supplies and updates the credentials the gateway attaches to requests.
// The session's vault implements it over durable storage.
type TokenStore interface {
	AccessToken(ctx context.Context) string
	RefreshToken(ctx context.Context) string
	SetAccessToken(ctx context.Context, token string) error
	ClearTokens(ctx context.Context) error
}
