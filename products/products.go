// Package products manages the catalogue: products and their promotion fields.
package products

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/distritherm-admin/apiclient"
	apperrors "github.com/jrsteele09/distritherm-admin/internal/errors"
	"github.com/jrsteele09/distritherm-admin/internal/utils"
	"github.com/jrsteele09/distritherm-admin/pagination"
	"github.com/jrsteele09/distritherm-admin/resource"
	"github.com/shopspring/decimal"
)

var Endpoint = resource.Endpoint{Path: "/products", Name: "Product", ListKey: "products", ItemKey: "product"}

// Product as returned by the API. CategoryName and MarkName are joined by the server.
type Product struct {
	ID                  int64            `json:"id" yaml:"id" validate:"required"`
	Name                string           `json:"name" yaml:"name"`
	Description         string           `json:"description,omitempty" yaml:"description,omitempty"`
	Price               decimal.Decimal  `json:"price" yaml:"price"`
	PriceTtc            *decimal.Decimal `json:"priceTtc,omitempty" yaml:"priceTtc,omitempty"`
	Quantity            int              `json:"quantity" yaml:"quantity"`
	ImageURLs           []string         `json:"imagesUrl,omitempty" yaml:"imagesUrl,omitempty"`
	IsActive            bool             `json:"isActive" yaml:"isActive"`
	IsInPromotion       bool             `json:"isInPromotion" yaml:"isInPromotion"`
	PromotionPrice      *decimal.Decimal `json:"promotionPrice,omitempty" yaml:"promotionPrice,omitempty"`
	PromotionEndDate    *time.Time       `json:"promotionEndDate,omitempty" yaml:"promotionEndDate,omitempty"`
	PromotionPercentage *decimal.Decimal `json:"promotionPercentage,omitempty" yaml:"promotionPercentage,omitempty"`
	CategoryID          int64            `json:"categoryId,omitempty" yaml:"categoryId,omitempty"`
	CategoryName        string           `json:"categoryName,omitempty" yaml:"categoryName,omitempty"`
	MarkID              int64            `json:"markId,omitempty" yaml:"markId,omitempty"`
	MarkName            string           `json:"markName,omitempty" yaml:"markName,omitempty"`
	CreatedAt           *time.Time       `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	UpdatedAt           *time.Time       `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// OnPromotion reports whether the promotional price applies.
func (p Product) OnPromotion() bool {
	return p.IsInPromotion && p.PromotionPrice != nil && p.PromotionPrice.IsPositive()
}

// UnitPrice is the promotional price when one applies, the list price otherwise.
func (p Product) UnitPrice() decimal.Decimal {
	if p.OnPromotion() {
		return utils.ValueOr(p.PromotionPrice, p.Price)
	}
	return p.Price
}

type CreateInput struct {
	Name        string          `json:"name" validate:"required,max=255"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity" validate:"gte=0"`
	ImageURLs   []string        `json:"imagesUrl,omitempty" validate:"omitempty,dive,url"`
	IsActive    bool            `json:"isActive"`
	CategoryID  int64           `json:"categoryId" validate:"required"`
	MarkID      int64           `json:"markId" validate:"required"`
}

type UpdateInput struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,max=255"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Quantity    *int             `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	ImageURLs   []string         `json:"imagesUrl,omitempty" validate:"omitempty,dive,url"`
	IsActive    *bool            `json:"isActive,omitempty"`
	CategoryID  *int64           `json:"categoryId,omitempty"`
	MarkID      *int64           `json:"markId,omitempty"`
}

// Filters narrows a product listing.
type Filters struct {
	Search     string
	CategoryID int64
	MarkID     int64
}

// Apply adds the non zero filters to params.
func (f Filters) Apply(params pagination.Params) pagination.Params {
	params = params.WithFilter("search", f.Search)
	if f.CategoryID > 0 {
		params = params.WithFilter("categoryId", fmt.Sprint(f.CategoryID))
	}
	if f.MarkID > 0 {
		params = params.WithFilter("markId", fmt.Sprint(f.MarkID))
	}
	return params
}

type Service struct {
	*resource.Service[Product, CreateInput, UpdateInput]
}

func NewService(client *apiclient.Client) *Service {
	return &Service{resource.NewService[Product, CreateInput, UpdateInput](client, Endpoint)}
}

// Create checks the price before sending.
func (s *Service) Create(ctx context.Context, input CreateInput) (Product, error) {
	if !input.Price.IsPositive() {
		return Product{}, fmt.Errorf("%w: price must be positive", apperrors.ErrInvalidInput)
	}
	return s.Service.Create(ctx, input)
}

func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (Product, error) {
	if input.Price != nil && !input.Price.IsPositive() {
		return Product{}, fmt.Errorf("%w: price must be positive", apperrors.ErrInvalidInput)
	}
	return s.Service.Update(ctx, id, input)
}

// Search lists products matching filters.
func (s *Service) Search(ctx context.Context, filters Filters, params pagination.Params) (pagination.Page[Product], error) {
	return s.List(ctx, filters.Apply(params))
}
