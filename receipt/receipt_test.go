package receipt

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"snap2sell/models"
)

func sampleOrder() models.Order {
	created := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	return models.Order{
		OrderID:         "o-42",
		Status:          models.OrderConfirmed,
		Total:           100,
		ShippingAddress: "12 Mandi Road, Pune",
		CreatedAt:       &created,
		Items: []models.OrderItem{
			{ProductID: "p1", ProductName: "Tomato", Quantity: 2, Price: 50},
		},
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	s := NewSigner("shop-secret")
	s.now = func() time.Time { return time.Unix(1760000000, 0) }

	payload := s.Payload(sampleOrder())
	if !strings.HasPrefix(payload, "o-42|100.00|1760000000|") {
		t.Fatalf("payload = %s", payload)
	}
	id, err := s.Verify(payload)
	if err != nil || id != "o-42" {
		t.Fatalf("Verify = %q, %v", id, err)
	}

	tampered := strings.Replace(payload, "100.00", "1.00", 1)
	if _, err := s.Verify(tampered); !errors.Is(err, ErrBadPayload) {
		t.Fatalf("tampered payload verified: %v", err)
	}
	if _, err := NewSigner("other").Verify(payload); !errors.Is(err, ErrBadPayload) {
		t.Fatalf("foreign key verified: %v", err)
	}
}

func TestRender(t *testing.T) {
	pdf, err := NewSigner("").Render(sampleOrder(), &models.User{Name: "Asha", Email: "asha@example.com"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		t.Fatalf("not a PDF: %q", pdf[:min(len(pdf), 16)])
	}
}

func TestRupees(t *testing.T) {
	if got := rupees(123456.5); got != "Rs. 1,23,456.50" {
		t.Fatalf("rupees = %q", got)
	}
}
