package orders

import (
	"context"
	"errors"
	"strings"

	"snap2sell/cart"
	"snap2sell/gateway"
	"snap2sell/globals"
	"snap2sell/models"
	"snap2sell/mq"
	"snap2sell/nav"

	"github.com/sirupsen/logrus"
)

var ErrEmptyCart = errors.New("cart is empty")

const DefaultAddress = "Default Address"

// Outcome is the state the cart view moves to after a checkout attempt.
type Outcome struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Next    string               `json:"next"`
	Order   *models.OrderCreated `json:"order,omitempty"`
	Err     error                `json:"-"`
}

// Checkout submits the cart as an order. On success the cart is cleared and the next route is
// the order list; on any failure the cart is left exactly as it was and the view stays put.
type Checkout struct {
	cart   *cart.Store
	orders *Service
	bus    *mq.Bus
	log    logrus.FieldLogger
}

func NewCheckout(c *cart.Store, svc *Service, bus *mq.Bus, log logrus.FieldLogger) *Checkout {
	return &Checkout{cart: c, orders: svc, bus: bus, log: log}
}

// Submit runs one checkout. An empty address falls back to DefaultAddress.
func (co *Checkout) Submit(ctx context.Context, address string) Outcome {
	items := co.cart.Get(ctx)
	if len(items) == 0 {
		return Outcome{Message: "Cart is empty", Next: nav.Cart, Err: ErrEmptyCart}
	}
	if address = strings.TrimSpace(address); address == "" {
		address = DefaultAddress
	}

	req := models.CreateOrderRequest{
		Items:           items,
		TotalAmount:     models.CartTotal(items),
		ShippingAddress: address,
	}
	created, err := co.orders.Create(ctx, req)
	if err != nil {
		co.log.WithError(err).WithField("items", len(items)).Warn("Checkout error")
		return Outcome{
			Message: gateway.MessageFrom(err, "Failed to place order"),
			Next:    nav.Cart,
			Err:     err,
		}
	}

	co.cart.Clear(ctx)
	co.bus.Emit(ctx, globals.EventOrderPlaced, created)
	co.log.WithFields(logrus.Fields{"orderId": created.OrderID, "total": req.TotalAmount}).Info("Order placed")
	return Outcome{
		Success: true,
		Message: "Order placed successfully!",
		Next:    nav.Orders,
		Order:   &created,
	}
}
