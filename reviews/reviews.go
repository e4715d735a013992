package reviews

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"snap2sell/gateway"
	"snap2sell/models"
)

var ErrInvalidReview = errors.New("invalid review")

// Service wraps the /reviews resource.
type Service struct {
	api *gateway.Client
}

func NewService(api *gateway.Client) *Service {
	return &Service{api: api}
}

// ForProduct lists the reviews of productID.
func (s *Service) ForProduct(ctx context.Context, productID string) ([]models.Review, error) {
	list, err := gateway.GetData[[]models.Review](ctx, s.api, "/reviews", url.Values{"product_id": {productID}})
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Review{}
	}
	return list, nil
}

// Create posts a review of productID.
func (s *Service) Create(ctx context.Context, productID string, in models.ReviewInput) error {
	if strings.TrimSpace(productID) == "" {
		return fmt.Errorf("%w: product id is required", ErrInvalidReview)
	}
	if err := validate(in, true); err != nil {
		return err
	}
	in.ProductID = productID
	return s.api.Post(ctx, "/reviews", in, nil)
}

func (s *Service) Update(ctx context.Context, reviewID string, in models.ReviewInput) error {
	if err := validate(in, false); err != nil {
		return err
	}
	in.ProductID = ""
	return s.api.Put(ctx, "/reviews/"+url.PathEscape(reviewID), in, nil)
}

func (s *Service) Delete(ctx context.Context, reviewID string) error {
	return s.api.Delete(ctx, "/reviews/"+url.PathEscape(reviewID), nil)
}

// AverageRating is the mean rating, 0 with no reviews.
func AverageRating(list []models.Review) float64 {
	if len(list) == 0 {
		return 0
	}
	sum := 0
	for _, r := range list {
		sum += r.Rating
	}
	return float64(sum) / float64(len(list))
}

func validate(in models.ReviewInput, create bool) error {
	if (create || in.Rating != 0) && (in.Rating < 1 || in.Rating > 5) {
		return fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidReview)
	}
	return nil
}
