package ml

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strings"

	"snap2sell/gateway"
	"snap2sell/models"

	"github.com/disintegration/imaging"
)

const (
	// MaxEdge is the longest side, in pixels, of a photo sent for analysis.
	MaxEdge = 1280
	// FallbackPrice is offered when the model suggests none.
	FallbackPrice = 500
	jpegQuality   = 85
)

var (
	ErrNoImage  = errors.New("image is required")
	ErrBadImage = errors.New("image cannot be decoded")
)

// Service wraps the /ml resource.
type Service struct {
	api *gateway.Client
}

func NewService(api *gateway.Client) *Service {
	return &Service{api: api}
}

// AnalyzeImage uploads a crop photo and returns the model's read of it. Large photos are
// downscaled first; phone cameras produce far more pixels than the classifier uses.
func (s *Service) AnalyzeImage(ctx context.Context, name string, src io.Reader) (models.CropAnalysis, error) {
	if src == nil {
		return models.CropAnalysis{}, ErrNoImage
	}
	payload, err := PrepareImage(src)
	if err != nil {
		return models.CropAnalysis{}, err
	}
	var env gateway.Envelope[models.CropAnalysis]
	err = s.api.Upload(ctx, "/ml/analyze-crop", nil, []gateway.File{{
		Field:       "image",
		Name:        jpegName(name),
		ContentType: "image/jpeg",
		Content:     bytes.NewReader(payload),
	}}, &env)
	if err != nil {
		return models.CropAnalysis{}, err
	}
	return withFallbackPrice(env.Data), nil
}

// CropInfo asks for a description and price suggestion for a crop by name.
func (s *Service) CropInfo(ctx context.Context, cropName string) (models.CropAnalysis, error) {
	cropName = strings.TrimSpace(cropName)
	if cropName == "" {
		return models.CropAnalysis{}, errors.New("crop name is required")
	}
	out, err := gateway.PostData[models.CropAnalysis](ctx, s.api, "/ml/crop-recommendation", map[string]string{"crop_name": cropName})
	if err != nil {
		return out, err
	}
	if out.CropName == "" {
		out.CropName = cropName
	}
	return withFallbackPrice(out), nil
}

// RecommendCrops suggests what to grow under the given conditions.
func (s *Service) RecommendCrops(ctx context.Context, in models.CropConditions) (map[string]any, error) {
	return gateway.PostData[map[string]any](ctx, s.api, "/ml/crop-recommendation", in)
}

func (s *Service) PredictPrice(ctx context.Context, in models.PriceQuery) (map[string]any, error) {
	if strings.TrimSpace(in.CropName) == "" {
		return nil, errors.New("crop name is required")
	}
	return gateway.PostData[map[string]any](ctx, s.api, "/ml/price-prediction", in)
}

// RecommendProducts returns up to n products for the current user; n defaults to 5.
func (s *Service) RecommendProducts(ctx context.Context, n int) ([]models.Product, error) {
	if n < 1 {
		n = 5
	}
	out, err := gateway.PostData[[]models.Product](ctx, s.api, "/ml/product-recommendation", map[string]int{"n_recommendations": n})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Product{}
	}
	return out, nil
}

func (s *Service) ModelInfo(ctx context.Context) (map[string]any, error) {
	return gateway.GetData[map[string]any](ctx, s.api, "/ml/model-info", nil)
}

// PrepareImage decodes src, honouring EXIF orientation, shrinks it to fit MaxEdge and
// re-encodes it as JPEG.
func PrepareImage(src io.Reader) ([]byte, error) {
	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	img = fit(img)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func fit(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() <= MaxEdge && b.Dy() <= MaxEdge {
		return img
	}
	if b.Dx() >= b.Dy() {
		return imaging.Resize(img, MaxEdge, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, MaxEdge, imaging.Lanczos)
}

func jpegName(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "crop"
	}
	return base + ".jpg"
}

func withFallbackPrice(a models.CropAnalysis) models.CropAnalysis {
	if a.SuggestedPrice <= 0 {
		a.SuggestedPrice = FallbackPrice
	}
	return a
}
