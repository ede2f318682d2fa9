// Package brands manages product brands, exposed by the API as "marks".
package brands

import (
	"time"

	"github.com/jrsteele09/distritherm-admin/apiclient"
	"github.com/jrsteele09/distritherm-admin/resource"
)

var Endpoint = resource.Endpoint{Path: "/marks", Name: "Brand", ListKey: "marks", ItemKey: "mark"}

type Brand struct {
	ID        int64      `json:"id" yaml:"id" validate:"required"`
	Name      string     `json:"name" yaml:"name"`
	CreatedAt *time.Time `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

type Input struct {
	Name string `json:"name" validate:"required,max=100"`
}

type Service = resource.Service[Brand, Input, Input]

func NewService(client *apiclient.Client) *Service {
	return resource.NewService[Brand, Input, Input](client, Endpoint)
}

// NewController returns a list controller for brands. Brands carry no server computed
// fields, so created brands are appended locally instead of reloading.
func NewController(svc *Service, auth resource.Authenticator, opts ...resource.Option[Brand]) *resource.Controller[Brand, Input, Input] {
	opts = append([]resource.Option[Brand]{resource.WithName[Brand]("brands"), resource.WithLocalInsert[Brand]()}, opts...)
	return resource.New[Brand, Input, Input](svc, auth, opts...)
}
