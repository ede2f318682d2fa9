// Package promotions manages promotional prices. A promotion is not a resource of its
// own: it is a product with its promotion fields set.
package promotions

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/distritherm-admin/apiclient"
	apperrors "github.com/jrsteele09/distritherm-admin/internal/errors"
	"github.com/jrsteele09/distritherm-admin/pagination"
	"github.com/jrsteele09/distritherm-admin/products"
	"github.com/jrsteele09/distritherm-admin/resource"
	"github.com/shopspring/decimal"
)

const listPath = "/products/promotions"

// Input puts a product on promotion.
type Input struct {
	ProductID      int64           `json:"-" validate:"required"`
	PromotionPrice decimal.Decimal `json:"promotionPrice"`
	EndDate        *time.Time      `json:"promotionEndDate,omitempty"`
}

type promotionBody struct {
	IsInPromotion       bool             `json:"isInPromotion"`
	PromotionPrice      *decimal.Decimal `json:"promotionPrice"`
	PromotionEndDate    *time.Time       `json:"promotionEndDate"`
	PromotionPercentage *decimal.Decimal `json:"promotionPercentage"`
}

type Service struct {
	products *resource.Service[products.Product, products.CreateInput, products.UpdateInput]
	nowTime  func() time.Time
}

func NewService(client *apiclient.Client) *Service {
	return &Service{
		products: resource.NewService[products.Product, products.CreateInput, products.UpdateInput](client, products.Endpoint),
		nowTime:  time.Now,
	}
}

// List returns the products currently on promotion.
func (s *Service) List(ctx context.Context, params pagination.Params) (pagination.Page[products.Product], error) {
	return s.products.ListAt(ctx, listPath, params)
}

// Create puts input.ProductID on promotion. The promotional price must be positive and
// below the list price, and the end date, when set, in the future.
func (s *Service) Create(ctx context.Context, input Input) (products.Product, error) {
	return s.apply(ctx, input.ProductID, input)
}

// Update changes the promotion of product id.
func (s *Service) Update(ctx context.Context, id int64, input Input) (products.Product, error) {
	input.ProductID = id
	return s.apply(ctx, id, input)
}

// Delete ends the promotion of product id. The product itself is kept.
func (s *Service) Delete(ctx context.Context, id int64) error {
	_, err := s.products.Patch(ctx, id, promotionBody{IsInPromotion: false})
	return err
}

func (s *Service) apply(ctx context.Context, id int64, input Input) (products.Product, error) {
	if id <= 0 {
		return products.Product{}, fmt.Errorf("%w: productId is required", apperrors.ErrInvalidInput)
	}
	if !input.PromotionPrice.IsPositive() {
		return products.Product{}, fmt.Errorf("%w: promotion price must be positive", apperrors.ErrInvalidInput)
	}
	if input.EndDate != nil && !input.EndDate.After(s.nowTime()) {
		return products.Product{}, fmt.Errorf("%w: promotion end date must be in the future", apperrors.ErrInvalidInput)
	}

	product, err := s.products.Get(ctx, id)
	if err != nil {
		return products.Product{}, err
	}
	if !input.PromotionPrice.LessThan(product.Price) {
		return products.Product{}, fmt.Errorf("%w: promotion price must be below the list price %s", apperrors.ErrInvalidInput, product.Price.StringFixed(2))
	}

	percentage := Percentage(product.Price, input.PromotionPrice)
	return s.products.Patch(ctx, id, promotionBody{
		IsInPromotion:       true,
		PromotionPrice:      &input.PromotionPrice,
		PromotionEndDate:    input.EndDate,
		PromotionPercentage: &percentage,
	})
}

// Percentage is the discount from price to promo, rounded to two decimals.
func Percentage(price, promo decimal.Decimal) decimal.Decimal {
	if !price.IsPositive() {
		return decimal.Zero
	}
	return price.Sub(promo).Div(price).Mul(decimal.NewFromInt(100)).Round(2)
}

var _ resource.Fetcher[products.Product, Input, Input] = (*Service)(nil)
