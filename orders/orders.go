package orders

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"snap2sell/gateway"
	"snap2sell/models"
	"snap2sell/utils"

	"github.com/google/uuid"
)

var ErrInvalidStatus = errors.New("invalid order status")

// Service wraps the /orders resource.
type Service struct {
	api *gateway.Client
}

func NewService(api *gateway.Client) *Service {
	return &Service{api: api}
}

// Create submits an order. The idempotency key lets the backend drop a duplicate if a
// refresh-and-replay resends the same submission.
func (s *Service) Create(ctx context.Context, req models.CreateOrderRequest) (models.OrderCreated, error) {
	var out models.OrderCreated
	err := s.api.DoJSON(ctx, &gateway.Request{
		Method: http.MethodPost,
		Path:   "/orders",
		Body:   req,
		Header: http.Header{"Idempotency-Key": []string{uuid.NewString()}},
	}, &out)
	if err != nil {
		return models.OrderCreated{}, err
	}
	return out, nil
}

// List returns the caller's orders, newest first as the backend sorts them.
func (s *Service) List(ctx context.Context, page, limit int, filter models.OrderFilter) (models.Page[models.Order], error) {
	var out models.Page[models.Order]
	q := utils.PageQuery(page, limit, map[string]string{"status": string(filter.Status)})
	if err := s.api.Get(ctx, "/orders", q, &out); err != nil {
		return out, err
	}
	if out.Data == nil {
		out.Data = []models.Order{}
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, orderID string) (models.Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return models.Order{}, errors.New("order id is required")
	}
	return gateway.GetData[models.Order](ctx, s.api, "/orders/"+url.PathEscape(orderID), nil)
}

// UpdateStatus moves an order to status; farmers and admins only, enforced server-side.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return s.api.Put(ctx, "/orders/"+url.PathEscape(orderID)+"/status", map[string]string{"status": string(status)}, nil)
}

func (s *Service) Cancel(ctx context.Context, orderID string) error {
	return s.api.Post(ctx, "/orders/"+url.PathEscape(orderID)+"/cancel", nil, nil)
}
