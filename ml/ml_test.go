package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"snap2sell/gateway"
	"snap2sell/models"

	"github.com/disintegration/imaging"
)

type noTokens struct{}

func (noTokens) AccessToken(context.Context) string { return "" }
func (noTokens) RefreshToken(context.Context) string { return "" }
func (noTokens) SetAccessToken(context.Context, string) error { return nil }
func (noTokens) ClearTokens(context.Context) error { return nil }

func pngOf(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 7 {
		img.Set(x, x%h, color.RGBA{G: 200, A: 255})
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

func TestPrepareImageDownscales(t *testing.T) {
	out, err := PrepareImage(bytes.NewReader(pngOf(3000, 1500)))
	if err != nil {
		t.Fatalf("PrepareImage: %v", err)
	}
	img, err := imaging.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if b := img.Bounds(); b.Dx() != MaxEdge || b.Dy() != MaxEdge/2 {
		t.Fatalf("size = %dx%d", b.Dx(), b.Dy())
	}

	small, err := PrepareImage(bytes.NewReader(pngOf(200, 400)))
	if err != nil {
		t.Fatal(err)
	}
	img, _ = imaging.Decode(bytes.NewReader(small))
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 400 {
		t.Fatalf("small image resized to %dx%d", b.Dx(), b.Dy())
	}

	if _, err := PrepareImage(bytes.NewReader([]byte("not an image"))); err == nil {
		t.Fatal("garbage decoded")
	}
}

func TestAnalyzeImage(t *testing.T) {
	var gotName, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ml/analyze-crop" {
			http.NotFound(w, r)
			return
		}
		f, hdr, err := r.FormFile("image")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"status":"error","message":"No image provided"}`))
			return
		}
		defer f.Close()
		gotName, gotType = hdr.Filename, hdr.Header.Get("Content-Type")
		_, _ = w.Write([]byte(`{"status":"success","data":{"crop_name":"Tomato","description":"Ripe red tomatoes","suggested_price":0}}`))
	}))
	defer srv.Close()

	svc := NewService(gateway.New(gateway.Options{BaseURL: srv.URL, Timeout: 5 * time.Second}, noTokens{}))
	res, err := svc.AnalyzeImage(context.Background(), "IMG_2041.png", bytes.NewReader(pngOf(64, 64)))
	if err != nil {
		t.Fatalf("AnalyzeImage: %v", err)
	}
	if res.CropName != "Tomato" || res.SuggestedPrice != FallbackPrice {
		t.Fatalf("result = %+v", res)
	}
	if gotName != "IMG_2041.jpg" || gotType != "image/jpeg" {
		t.Fatalf("uploaded %q as %q", gotName, gotType)
	}
	if _, err := svc.AnalyzeImage(context.Background(), "x", nil); err != ErrNoImage {
		t.Fatalf("nil image: %v", err)
	}
}

func TestRecommendProductsDefaults(t *testing.T) {
	var n float64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]float64
		_ = json.NewDecoder(r.Body).Decode(&body)
		n = body["n_recommendations"]
		_, _ = w.Write([]byte(`{"status":"success","data":[{"product_id":"p3","name":"Okra","price":30}]}`))
	}))
	defer srv.Close()

	svc := NewService(gateway.New(gateway.Options{BaseURL: srv.URL, Timeout: 5 * time.Second}, noTokens{}))
	list, err := svc.RecommendProducts(context.Background(), 0)
	if err != nil || len(list) != 1 || n != 5 {
		t.Fatalf("RecommendProducts = %+v, %v (n=%v)", list, err, n)
	}
	if list[0] != (models.Product{ProductID: "p3", Name: "Okra", Price: 30}) {
		t.Fatalf("product = %+v", list[0])
	}
}

