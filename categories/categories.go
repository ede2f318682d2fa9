// Package categories manages the product category tree.
package categories

import (
	"fmt"

	"github.com/jrsteele09/distritherm-admin/apiclient"
	"github.com/jrsteele09/distritherm-admin/pagination"
	"github.com/jrsteele09/distritherm-admin/resource"
)

var Endpoint = resource.Endpoint{Path: "/categories", Name: "Category", ListKey: "categories", ItemKey: "category"}

type Category struct {
	ID               int64  `json:"id" yaml:"id" validate:"required"`
	Name             string `json:"name" yaml:"name"`
	Alias            string `json:"alias,omitempty" yaml:"alias,omitempty"`
	Description      string `json:"description,omitempty" yaml:"description,omitempty"`
	ParentCategoryID *int64 `json:"parentCategoryId,omitempty" yaml:"parentCategoryId,omitempty"`
	AgenceID         int64  `json:"agenceId,omitempty" yaml:"agenceId,omitempty"`
	AgenceName       string `json:"agenceName,omitempty" yaml:"agenceName,omitempty"`
	Level            int    `json:"level" yaml:"level"`
	IsActive         bool   `json:"isActive" yaml:"isActive"`
	ImageURL         string `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`
}

type Input struct {
	Name             string `json:"name" validate:"required,max=100"`
	Alias            string `json:"alias,omitempty" validate:"omitempty,max=100"`
	Description      string `json:"description,omitempty"`
	ParentCategoryID *int64 `json:"parentCategoryId,omitempty" validate:"omitempty,gt=0"`
	AgenceID         int64  `json:"agenceId" validate:"required"`
	Level            int    `json:"level" validate:"gte=1,lte=3"`
	IsActive         bool   `json:"isActive"`
	ImageURL         string `json:"imageUrl,omitempty" validate:"omitempty,url"`
}

type Service = resource.Service[Category, Input, Input]

func NewService(client *apiclient.Client) *Service {
	return resource.NewService[Category, Input, Input](client, Endpoint)
}

// ByAgency narrows a listing to the categories of one agency.
func ByAgency(params pagination.Params, agencyID int64) pagination.Params {
	if agencyID <= 0 {
		return params.WithFilter("agenceId", "")
	}
	return params.WithFilter("agenceId", fmt.Sprint(agencyID))
}

// Children returns the direct children of parentID among cats, in order.
func Children(cats []Category, parentID int64) []Category {
	out := make([]Category, 0)
	for _, c := range cats {
		if c.ParentCategoryID != nil && *c.ParentCategoryID == parentID {
			out = append(out, c)
		}
	}
	return out
}

// Roots returns the categories without a parent.
func Roots(cats []Category) []Category {
	out := make([]Category, 0)
	for _, c := range cats {
		if c.ParentCategoryID == nil {
			out = append(out, c)
		}
	}
	return out
}
