// Package agencies manages the distributor's physical branches.
package agencies

import (
	"time"

	"github.com/jrsteele09/distritherm-admin/apiclient"
	"github.com/jrsteele09/distritherm-admin/resource"
)

var Endpoint = resource.Endpoint{Path: "/agencies", Name: "Agency", ListKey: "agencies", ItemKey: "agency"}

type Agency struct {
	ID         int64      `json:"id" yaml:"id" validate:"required"`
	Name       string     `json:"name" yaml:"name"`
	Address    string     `json:"address,omitempty" yaml:"address,omitempty"`
	City       string     `json:"city,omitempty" yaml:"city,omitempty"`
	PostalCode string     `json:"postalCode,omitempty" yaml:"postalCode,omitempty"`
	Country    string     `json:"country,omitempty" yaml:"country,omitempty"`
	Phone      string     `json:"phone,omitempty" yaml:"phone,omitempty"`
	Email      string     `json:"email,omitempty" yaml:"email,omitempty"`
	CreatedAt  *time.Time `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
}

type Input struct {
	Name       string `json:"name" validate:"required,max=100"`
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postalCode,omitempty" validate:"omitempty,numeric,len=5"`
	Country    string `json:"country,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
}

type Service = resource.Service[Agency, Input, Input]

func NewService(client *apiclient.Client) *Service {
	return resource.NewService[Agency, Input, Input](client, Endpoint)
}

// NewController returns a list controller for agencies, appending created agencies
// locally since nothing about them is computed by the server.
func NewController(svc *Service, auth resource.Authenticator, opts ...resource.Option[Agency]) *resource.Controller[Agency, Input, Input] {
	opts = append([]resource.Option[Agency]{resource.WithName[Agency]("agencies"), resource.WithLocalInsert[Agency]()}, opts...)
	return resource.New[Agency, Input, Input](svc, auth, opts...)
}
