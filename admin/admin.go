package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"slices"
	"strings"

	"snap2sell/gateway"
	"snap2sell/models"
	"snap2sell/utils"
)

// Document types the knowledge base ingests.
var DocumentExtensions = []string{".pdf", ".txt", ".md", ".docx"}

var ErrUnsupportedDocument = errors.New("unsupported document type")

// Service wraps the /admin resource. Every call needs an admin token; the backend enforces it.
type Service struct {
	api *gateway.Client
}

func NewService(api *gateway.Client) *Service {
	return &Service{api: api}
}

func (s *Service) Users(ctx context.Context, page, limit int) (models.Page[models.User], error) {
	var out models.Page[models.User]
	err := s.api.Get(ctx, "/admin/users", utils.PageQuery(page, limit, nil), &out)
	return out, err
}

func (s *Service) User(ctx context.Context, userID string) (models.User, error) {
	return gateway.GetData[models.User](ctx, s.api, "/admin/users/"+url.PathEscape(userID), nil)
}

// UserUpdate is what an admin may change on an account.
type UserUpdate struct {
	Name    *string      `json:"name,omitempty"`
	Role    *models.Role `json:"role,omitempty"`
	Phone   *string      `json:"phone,omitempty"`
	Address *string      `json:"address,omitempty"`
	Active  *bool        `json:"is_active,omitempty"`
}

func (s *Service) UpdateUser(ctx context.Context, userID string, in UserUpdate) error {
	if in.Role != nil && !in.Role.Valid() {
		return fmt.Errorf("unknown role %q", *in.Role)
	}
	return s.api.Put(ctx, "/admin/users/"+url.PathEscape(userID), in, nil)
}

func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	return s.api.Delete(ctx, "/admin/users/"+url.PathEscape(userID), nil)
}

func (s *Service) Products(ctx context.Context, page, limit int) (models.Page[models.Product], error) {
	var out models.Page[models.Product]
	err := s.api.Get(ctx, "/admin/products", utils.PageQuery(page, limit, nil), &out)
	return out, err
}

func (s *Service) Orders(ctx context.Context, page, limit int) (models.Page[models.Order], error) {
	var out models.Page[models.Order]
	err := s.api.Get(ctx, "/admin/orders", utils.PageQuery(page, limit, nil), &out)
	return out, err
}

// UploadDocument sends a knowledge-base document for the assistant's retrieval index.
func (s *Service) UploadDocument(ctx context.Context, name string, content io.Reader) (map[string]any, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if !slices.Contains(DocumentExtensions, ext) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDocument, ext)
	}
	var env gateway.Envelope[map[string]any]
	err := s.api.Upload(ctx, "/admin/upload-document", nil, []gateway.File{{
		Field:   "document",
		Name:    filepath.Base(name),
		Content: content,
	}}, &env)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}
