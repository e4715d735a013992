package models

type Review struct {
	ReviewID  string `json:"review_id"`
	ProductID string `json:"product_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
	UserName  string `json:"user_name,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// ReviewInput is the create/update payload; rating must be 1..5.
type ReviewInput struct {
	ProductID string `json:"product_id,omitempty"`
	Rating    int    `json:"rating,omitempty"`
	Comment   string `json:"comment,omitempty"`
}
