package receipt

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"snap2sell/models"
	"snap2sell/utils"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

const defaultKey = "snap2sell-receipt"

var ErrBadPayload = errors.New("receipt payload does not verify")

// Signer produces and checks the QR payload printed on a receipt:
// orderID|total|issuedAt|signature.
type Signer struct {
	key []byte
	now func() time.Time
}

// NewSigner signs with secret; an empty secret uses a fixed key that only guards against typos.
func NewSigner(secret string) *Signer {
	if secret == "" {
		secret = defaultKey
	}
	return &Signer{key: []byte(secret), now: time.Now}
}

func (s *Signer) Payload(order models.Order) string {
	data := fmt.Sprintf("%s|%.2f|%d", order.OrderID, order.Total, s.now().Unix())
	return data + "|" + s.sign(data)
}

// Verify checks payload and returns the order id it names.
func (s *Signer) Verify(payload string) (string, error) {
	i := strings.LastIndexByte(payload, '|')
	if i < 0 {
		return "", ErrBadPayload
	}
	data, sig := payload[:i], payload[i+1:]
	if !hmac.Equal([]byte(sig), []byte(s.sign(data))) {
		return "", ErrBadPayload
	}
	parts := strings.Split(data, "|")
	if len(parts) != 3 {
		return "", ErrBadPayload
	}
	if _, err := strconv.ParseInt(parts[2], 10, 64); err != nil {
		return "", ErrBadPayload
	}
	return parts[0], nil
}

func (s *Signer) sign(data string) string {
	h := hmac.New(sha256.New, s.key)
	h.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// Render lays out an A4 receipt for order with a QR code of the signed payload.
func (s *Signer) Render(order models.Order, buyer *models.User) ([]byte, error) {
	qrPNG, err := qrcode.Encode(s.Payload(order), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("generate QR code: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Order "+order.OrderID, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 10, "SNAP2SELL Order Receipt")
	pdf.Ln(14)

	pdf.SetFont("Arial", "", 11)
	line := func(label, value string) {
		if value == "" {
			return
		}
		pdf.CellFormat(35, 7, label, "", 0, "", false, 0, "")
		pdf.CellFormat(0, 7, tr(value), "", 1, "", false, 0, "")
	}
	line("Order ID:", order.OrderID)
	line("Status:", strings.ToUpper(string(order.Status)))
	line("Placed on:", utils.FormatTime(order.CreatedAt))
	if buyer != nil {
		line("Customer:", buyer.Name)
		line("Email:", buyer.Email)
	}
	line("Ship to:", order.ShippingAddress)

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 155, 22, 40, 40, false, imageOpts, 0, "")

	pdf.Ln(10)
	pdf.SetFont("Arial", "B", 11)
	pdf.SetFillColor(230, 244, 234)
	pdf.CellFormat(90, 8, "Item", "1", 0, "", true, 0, "")
	pdf.CellFormat(20, 8, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 8, "Price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(35, 8, "Subtotal", "1", 1, "R", true, 0, "")

	pdf.SetFont("Arial", "", 11)
	var total float64
	for _, it := range order.Items {
		sub := it.Total
		if sub == 0 {
			sub = it.Price * float64(it.Quantity)
		}
		total += sub
		pdf.CellFormat(90, 8, tr(utils.Truncate(it.DisplayName(), 45)), "1", 0, "", false, 0, "")
		pdf.CellFormat(20, 8, strconv.Itoa(it.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 8, rupees(it.Price), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 8, rupees(sub), "1", 1, "R", false, 0, "")
	}
	if order.Total > 0 {
		total = order.Total
	}
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(145, 9, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 9, rupees(total), "1", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// rupees is FormatPrice for the PDF core fonts, which have no rupee glyph.
func rupees(v float64) string {
	return strings.Replace(utils.FormatPrice(v), "₹", "Rs. ", 1)
}
