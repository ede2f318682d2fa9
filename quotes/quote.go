// Package quotes manages quotes ("devis"): their status, commercial assignment, PDF
// file and the total shown for them.
package quotes

import (
	"time"

	"github.com/jrsteele09/distritherm-admin/products"
	"github.com/jrsteele09/distritherm-admin/users"
	"github.com/shopspring/decimal"
)

// Quote is a priced proposal built from a client's cart.
type Quote struct {
	ID           int64             `json:"id" yaml:"id" validate:"required"`
	Status       Status            `json:"status" yaml:"status"`
	UserID       int64             `json:"userId,omitempty" yaml:"userId,omitempty"`
	User         *users.User       `json:"user,omitempty" yaml:"user,omitempty"`
	CommercialID *int64            `json:"commercialId,omitempty" yaml:"commercialId,omitempty"`
	Commercial   *users.Commercial `json:"commercial,omitempty" yaml:"commercial,omitempty"`
	Cart         *Cart             `json:"cart,omitempty" yaml:"cart,omitempty"`
	FileURL      string            `json:"fileUrl,omitempty" yaml:"fileUrl,omitempty"`
	EndDate      *time.Time        `json:"endDate,omitempty" yaml:"endDate,omitempty"`
	Comment      string            `json:"comment,omitempty" yaml:"comment,omitempty"`
	CreatedAt    *time.Time        `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	UpdatedAt    *time.Time        `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// Cart is the snapshot of the client's cart the quote was created from.
type Cart struct {
	ID         int64            `json:"id,omitempty" yaml:"id,omitempty"`
	TotalPrice *decimal.Decimal `json:"totalPrice,omitempty" yaml:"totalPrice,omitempty"`
	CartItems  []CartItem       `json:"cartItems" yaml:"cartItems"`
}

type CartItem struct {
	ID        int64            `json:"id,omitempty" yaml:"id,omitempty"`
	Quantity  int              `json:"quantity" yaml:"quantity"`
	PriceTtc  *decimal.Decimal `json:"priceTtc,omitempty" yaml:"priceTtc,omitempty"`
	ProductID int64            `json:"productId,omitempty" yaml:"productId,omitempty"`
	Product   products.Product `json:"product" yaml:"product"`
}

// AssignedTo returns the user id of the assigned commercial, or 0.
func (q Quote) AssignedTo() int64 {
	switch {
	case q.Commercial != nil && q.Commercial.UserID != 0:
		return q.Commercial.UserID
	case q.CommercialID != nil:
		return *q.CommercialID
	}
	return 0
}

// HasFile reports whether a PDF was uploaded for the quote.
func (q Quote) HasFile() bool {
	return q.FileURL != ""
}

// Expired reports whether the quote's validity end date is before now.
func (q *Quote) Expired(now time.Time) bool {
	return q != nil && q.EndDate != nil && q.EndDate.Before(now)
}
