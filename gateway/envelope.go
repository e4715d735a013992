package gateway

import (
	"context"
	"net/url"
)

// Envelope is the backend's single-resource body: {"status": "success", "data": {...}}.
type Envelope[T any] struct {
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data"`
}

// GetData fetches path and unwraps its data field.
func GetData[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	var env Envelope[T]
	err := c.Get(ctx, path, query, &env)
	return env.Data, err
}

// PostData posts body to path and unwraps the data field of the reply.
func PostData[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	var env Envelope[T]
	err := c.Post(ctx, path, body, &env)
	return env.Data, err
}
