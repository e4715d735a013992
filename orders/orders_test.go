package orders

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"snap2sell/cart"
	"snap2sell/db"
	"snap2sell/gateway"
	"snap2sell/logging"
	"snap2sell/models"
	"snap2sell/mq"
	"snap2sell/nav"
)

type tokens struct{}

func (tokens) AccessToken(context.Context) string { return "tok" }
func (tokens) RefreshToken(context.Context) string { return "" }
func (tokens) SetAccessToken(context.Context, string) error { return nil }
func (tokens) ClearTokens(context.Context) error { return nil }

type orderBackend struct {
	mu       sync.Mutex
	fail     bool
	received []models.CreateOrderRequest
	keys     []string
	status   map[string]string
}

func (b *orderBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/orders":
		if b.fail {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"status":"error","message":"Insufficient stock for Tomato"}`))
			return
		}
		var req models.CreateOrderRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.received = append(b.received, req)
		b.keys = append(b.keys, r.Header.Get("Idempotency-Key"))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(models.OrderCreated{OrderID: "o1", Total: req.TotalAmount, Message: "Order created successfully"})
	case r.Method == http.MethodGet && r.URL.Path == "/api/orders":
		status := r.URL.Query().Get("status")
		orders := []models.Order{}
		if status == "" || status == "pending" {
			orders = append(orders, models.Order{OrderID: "o1", Status: models.OrderPending, Total: 100})
		}
		_ = json.NewEncoder(w).Encode(models.Page[models.Order]{Data: orders, Pagination: models.Pagination{Page: 1, Limit: 20, Total: len(orders), Pages: 1}})
	case r.Method == http.MethodGet && r.URL.Path == "/api/orders/o1":
		_, _ = w.Write([]byte(`{"status":"success","data":{"order_id":"o1","status":"shipped","total_price":100,"items":[{"product_id":"p1","product_name":"Tomato","quantity":2,"price":50}]}}`))
	case r.Method == http.MethodPut && r.URL.Path == "/api/orders/o1/status":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if b.status == nil {
			b.status = map[string]string{}
		}
		b.status["o1"] = body["status"]
		_, _ = w.Write([]byte(`{"message":"Order status updated"}`))
	case r.Method == http.MethodPost && r.URL.Path == "/api/orders/o1/cancel":
		_, _ = w.Write([]byte(`{"message":"Order cancelled"}`))
	default:
		http.NotFound(w, r)
	}
}

func setup(t *testing.T, b *orderBackend) (*Checkout, *cart.Store, *Service, *[]string) {
	t.Helper()
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	log := logging.Discard()
	bus := mq.NewBus(log)
	events := &[]string{}
	bus.Subscribe("", func(_ context.Context, ev mq.Event) { *events = append(*events, ev.Name) })

	api := gateway.New(gateway.Options{BaseURL: srv.URL + "/api", Timeout: 5 * time.Second, Bus: bus, Logger: log}, tokens{})
	c := cart.New(context.Background(), db.NewMemoryStore(), bus, log)
	svc := NewService(api)
	return NewCheckout(c, svc, bus, log), c, svc, events
}

func TestCheckoutTwoOfOneProduct(t *testing.T) {
	b := &orderBackend{}
	co, c, _, events := setup(t, b)
	ctx := context.Background()

	p1 := models.CartProduct{ProductID: "p1", Name: "Tomato", Price: 50}
	c.Add(ctx, p1)
	c.Add(ctx, p1)

	out := co.Submit(ctx, "")
	if !out.Success || out.Next != nav.Orders || out.Order == nil || out.Order.OrderID != "o1" {
		t.Fatalf("Submit = %+v", out)
	}
	if len(b.received) != 1 {
		t.Fatalf("orders received = %d", len(b.received))
	}
	got := b.received[0]
	if got.TotalAmount != 100 || len(got.Items) != 1 || got.Items[0].Quantity != 2 {
		t.Fatalf("submitted = %+v", got)
	}
	if got.ShippingAddress != DefaultAddress {
		t.Fatalf("address = %q", got.ShippingAddress)
	}
	if b.keys[0] == "" {
		t.Fatal("missing Idempotency-Key")
	}
	if c.Count(ctx) != 0 || c.Raw(ctx) != "[]" {
		t.Fatalf("cart not cleared: %s", c.Raw(ctx))
	}
	if last := (*events)[len(*events)-1]; last != "order.placed" {
		t.Fatalf("last event = %s", last)
	}
}

func TestFailedCheckoutLeavesCartIdentical(t *testing.T) {
	b := &orderBackend{fail: true}
	co, c, _, _ := setup(t, b)
	ctx := context.Background()

	c.Add(ctx, models.CartProduct{ProductID: "p1", Name: "Tomato", Price: 50})
	c.Add(ctx, models.CartProduct{ProductID: "p2", Name: "Rice", Price: 72.25, ImageURL: "/rice.png"})
	c.UpdateQuantity(ctx, "p2", 3)
	before := c.Raw(ctx)

	out := co.Submit(ctx, "12 Mandi Road")
	if out.Success || out.Next != nav.Cart || out.Message != "Insufficient stock for Tomato" {
		t.Fatalf("Submit = %+v", out)
	}
	if gateway.StatusOf(out.Err) != http.StatusBadRequest {
		t.Fatalf("Err = %v", out.Err)
	}
	if after := c.Raw(ctx); after != before {
		t.Fatalf("cart changed:\nbefore %s\nafter  %s", before, after)
	}
}

func TestEmptyCartRejectedLocally(t *testing.T) {
	b := &orderBackend{}
	co, _, _, _ := setup(t, b)

	out := co.Submit(context.Background(), "")
	if out.Success || !errors.Is(out.Err, ErrEmptyCart) || out.Message != "Cart is empty" {
		t.Fatalf("Submit = %+v", out)
	}
	if len(b.received) != 0 {
		t.Fatal("empty cart reached the backend")
	}
}

func TestService(t *testing.T) {
	b := &orderBackend{}
	_, _, svc, _ := setup(t, b)
	ctx := context.Background()

	page, err := svc.List(ctx, 1, 20, models.OrderFilter{Status: models.OrderDelivered})
	if err != nil || len(page.Data) != 0 || page.TotalPages() != 1 {
		t.Fatalf("List delivered = %+v, %v", page, err)
	}
	page, err = svc.List(ctx, 0, 0, models.OrderFilter{})
	if err != nil || len(page.Data) != 1 {
		t.Fatalf("List = %+v, %v", page, err)
	}

	order, err := svc.Get(ctx, "o1")
	if err != nil || order.Status != models.OrderShipped || order.Items[0].DisplayName() != "Tomato" {
		t.Fatalf("Get = %+v, %v", order, err)
	}

	if err := svc.UpdateStatus(ctx, "o1", "teleported"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("UpdateStatus invalid: %v", err)
	}
	if err := svc.UpdateStatus(ctx, "o1", models.OrderConfirmed); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if b.status["o1"] != "confirmed" {
		t.Fatalf("status sent = %q", b.status["o1"])
	}
	if err := svc.Cancel(ctx, "o1"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := svc.Get(ctx, "missing"); gateway.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("Get missing: %v", err)
	}
}
