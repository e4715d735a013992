package products

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"snap2sell/gateway"
	"snap2sell/models"
	"snap2sell/utils"
)

var ErrInvalidProduct = errors.New("invalid product")

// Service wraps the /products resource.
type Service struct {
	api *gateway.Client
}

func NewService(api *gateway.Client) *Service {
	return &Service{api: api}
}

// List returns one page of the marketplace, optionally filtered by category and search text.
func (s *Service) List(ctx context.Context, page, limit int, filter models.ProductFilter) (models.Page[models.Product], error) {
	q := utils.PageQuery(page, limit, map[string]string{
		"category": filter.Category,
		"search":   filter.Search,
	})
	return s.list(ctx, "/products", q)
}

// ByFarmer lists the products a farmer has listed.
func (s *Service) ByFarmer(ctx context.Context, farmerID string, page, limit int) (models.Page[models.Product], error) {
	if strings.TrimSpace(farmerID) == "" {
		return models.Page[models.Product]{}, fmt.Errorf("%w: farmer id is required", ErrInvalidProduct)
	}
	return s.list(ctx, "/products/farmer/"+url.PathEscape(farmerID), utils.PageQuery(page, limit, nil))
}

func (s *Service) list(ctx context.Context, path string, q url.Values) (models.Page[models.Product], error) {
	var out models.Page[models.Product]
	if err := s.api.Get(ctx, path, q, &out); err != nil {
		return out, err
	}
	if out.Data == nil {
		out.Data = []models.Product{}
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, productID string) (models.Product, error) {
	return gateway.GetData[models.Product](ctx, s.api, "/products/"+url.PathEscape(productID), nil)
}

// Create lists a new product for the logged-in farmer and returns its id.
func (s *Service) Create(ctx context.Context, in models.ProductInput) (string, error) {
	if err := Validate(in, true); err != nil {
		return "", err
	}
	var out struct {
		ProductID string          `json:"product_id"`
		Data      *models.Product `json:"data"`
	}
	if err := s.api.Post(ctx, "/products", in, &out); err != nil {
		return "", err
	}
	if out.ProductID == "" && out.Data != nil {
		out.ProductID = out.Data.ProductID
	}
	return out.ProductID, nil
}

func (s *Service) Update(ctx context.Context, productID string, in models.ProductInput) error {
	if err := Validate(in, false); err != nil {
		return err
	}
	return s.api.Put(ctx, "/products/"+url.PathEscape(productID), in, nil)
}

func (s *Service) Delete(ctx context.Context, productID string) error {
	return s.api.Delete(ctx, "/products/"+url.PathEscape(productID), nil)
}

// Validate applies the backend's product rules so obvious mistakes fail before a round trip.
// Partial updates only check the fields they set.
func Validate(in models.ProductInput, create bool) error {
	if create {
		if strings.TrimSpace(in.Name) == "" {
			return fmt.Errorf("%w: name is required", ErrInvalidProduct)
		}
		if in.Price <= 0 {
			return fmt.Errorf("%w: price must be positive", ErrInvalidProduct)
		}
		if in.Category == "" {
			return fmt.Errorf("%w: category is required", ErrInvalidProduct)
		}
	}
	if in.Price < 0 {
		return fmt.Errorf("%w: price must be positive", ErrInvalidProduct)
	}
	if in.Quantity < 0 {
		return fmt.Errorf("%w: quantity cannot be negative", ErrInvalidProduct)
	}
	if in.Category != "" && !slices.Contains(models.ProductCategories, in.Category) {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidProduct, in.Category)
	}
	return nil
}
