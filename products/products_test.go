package products

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"snap2sell/gateway"
	"snap2sell/models"
)

type noTokens struct{}

func (noTokens) AccessToken(context.Context) string { return "" }
func (noTokens) RefreshToken(context.Context) string { return "" }
func (noTokens) SetAccessToken(context.Context, string) error { return nil }
func (noTokens) ClearTokens(context.Context) error { return nil }

func newService(t *testing.T, h http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewService(gateway.New(gateway.Options{BaseURL: srv.URL, Timeout: 5 * time.Second}, noTokens{}))
}

func TestList(t *testing.T) {
	var query string
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(models.Page[models.Product]{
			Data:       []models.Product{{ProductID: "p1", Name: "Tomato", Category: "Vegetables", Price: 50}},
			Pagination: models.Pagination{Page: 2, Limit: 10, Total: 11, Pages: 2},
		})
	})

	page, err := svc.List(context.Background(), 2, 10, models.ProductFilter{Category: "Vegetables"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if query != "category=Vegetables&limit=10&page=2" {
		t.Fatalf("query = %s", query)
	}
	if len(page.Data) != 1 || page.TotalPages() != 2 {
		t.Fatalf("page = %+v", page)
	}
	if cp := page.Data[0].CartProduct(); cp.ProductID != "p1" || cp.Price != 50 {
		t.Fatalf("CartProduct = %+v", cp)
	}
}

func TestGetAndCreate(t *testing.T) {
	var created models.ProductInput
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/products/p1":
			_, _ = w.Write([]byte(`{"status":"success","data":{"product_id":"p1","name":"Tomato","price":50,"quantity":40}}`))
		case r.Method == http.MethodPost && r.URL.Path == "/products":
			_ = json.NewDecoder(r.Body).Decode(&created)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"message":"Product created successfully","product_id":"p9"}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/products/p1":
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"status":"error","message":"Unauthorized to delete this product"}`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	p, err := svc.Get(ctx, "p1")
	if err != nil || p.Name != "Tomato" || p.Quantity != 40 {
		t.Fatalf("Get = %+v, %v", p, err)
	}

	id, err := svc.Create(ctx, models.ProductInput{Name: "Mango", Price: 120, Quantity: 10, Category: "Fruits"})
	if err != nil || id != "p9" || created.Name != "Mango" {
		t.Fatalf("Create = %q, %v (sent %+v)", id, err, created)
	}

	err = svc.Delete(ctx, "p1")
	if gateway.MessageFrom(err, "") != "Unauthorized to delete this product" {
		t.Fatalf("Delete err = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		in     models.ProductInput
		create bool
		ok     bool
	}{
		{"complete", models.ProductInput{Name: "Rice", Price: 40, Category: "Grains"}, true, true},
		{"no name", models.ProductInput{Price: 40, Category: "Grains"}, true, false},
		{"zero price", models.ProductInput{Name: "Rice", Category: "Grains"}, true, false},
		{"bad category", models.ProductInput{Name: "Rice", Price: 1, Category: "Gadgets"}, true, false},
		{"partial update", models.ProductInput{Quantity: 5}, false, true},
		{"negative stock", models.ProductInput{Quantity: -1}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.in, tt.create)
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidProduct) {
				t.Fatalf("err = %v, want ErrInvalidProduct", err)
			}
		})
	}
}
