package reviews

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

func TestReviews(t *testing.T) {
	var posted models.ReviewInput
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/reviews":
			if r.URL.Query().Get("product_id") != "p1" {
				_, _ = w.Write([]byte(`{"data":[]}`))
				return
			}
			_, _ = w.Write([]byte(`{"status":"success","data":[{"review_id":"r1","product_id":"p1","rating":5,"comment":"Fresh"},{"review_id":"r2","product_id":"p1","rating":2}]}`))
		case r.Method == http.MethodPost && r.URL.Path == "/reviews":
			_ = json.NewDecoder(r.Body).Decode(&posted)
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodDelete && r.URL.Path == "/reviews/r1":
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	svc := NewService(gateway.New(gateway.Options{BaseURL: srv.URL, Timeout: 5 * time.Second}, noTokens{}))
	ctx := context.Background()

	list, err := svc.ForProduct(ctx, "p1")
	if err != nil || len(list) != 2 {
		t.Fatalf("ForProduct = %+v, %v", list, err)
	}
	if avg := AverageRating(list); avg != 3.5 {
		t.Fatalf("AverageRating = %v", avg)
	}
	if empty, err := svc.ForProduct(ctx, "p2"); err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("ForProduct empty = %#v, %v", empty, err)
	}

	if err := svc.Create(ctx, "p1", models.ReviewInput{Rating: 4, Comment: "Good"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if posted.ProductID != "p1" || posted.Rating != 4 {
		t.Fatalf("posted = %+v", posted)
	}
	if err := svc.Create(ctx, "p1", models.ReviewInput{Rating: 6}); !errors.Is(err, ErrInvalidReview) {
		t.Fatalf("Create rating 6: %v", err)
	}
	if err := svc.Update(ctx, "r1", models.ReviewInput{Comment: "edited"}); gateway.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("Update: %v", err)
	}
	if err := svc.Delete(ctx, "r1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}
