package models

import "time"

// Categories the backend accepts for a product.
var ProductCategories = []string{
	"crops", "seeds", "fertilizers", "tools", "equipment",
	"Vegetables", "Grains", "Fruits", "Spices",
}

type Product struct {
	ProductID    string     `json:"product_id"`
	FarmerID     string     `json:"farmer_id,omitempty"`
	Name         string     `json:"name"`
	Category     string     `json:"category"`
	Description  string     `json:"description"`
	Price        float64    `json:"price"`
	Quantity     int        `json:"quantity"`
	Rating       float64    `json:"rating,omitempty"`
	ReviewCount  int        `json:"review_count,omitempty"`
	ImageURL     string     `json:"image_url,omitempty"`
	SoilType     string     `json:"soil_type,omitempty"`
	Season       string     `json:"season,omitempty"`
	QualityGrade string     `json:"quality_grade,omitempty"`
	Location     string     `json:"location,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
}

// CartProduct returns the subset of p that goes into a cart line item.
func (p Product) CartProduct() CartProduct {
	return CartProduct{
		ProductID: p.ProductID,
		Name:      p.Name,
		Price:     p.Price,
		ImageURL:  p.ImageURL,
	}
}

// ProductInput is the farmer dashboard's create/update payload.
type ProductInput struct {
	Name         string  `json:"name,omitempty"`
	Description  string  `json:"description,omitempty"`
	Price        float64 `json:"price,omitempty"`
	Quantity     int     `json:"quantity,omitempty"`
	Category     string  `json:"category,omitempty"`
	SoilType     string  `json:"soil_type,omitempty"`
	Season       string  `json:"season,omitempty"`
	QualityGrade string  `json:"quality_grade,omitempty"`
	Location     string  `json:"location,omitempty"`
	ImageURL     string  `json:"image_url,omitempty"`
}

// ProductFilter narrows a product listing.
type ProductFilter struct {
	Category string
	Search   string
}

// Pagination mirrors the backend's pagination block.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// Page is a paginated list response: {data: [...], pagination: {...}}.
type Page[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// TotalPages never reports fewer than one page.
func (p Page[T]) TotalPages() int {
	if p.Pagination.Pages < 1 {
		return 1
	}
	return p.Pagination.Pages
}
