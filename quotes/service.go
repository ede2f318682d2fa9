package quotes

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jrsteele09/distritherm-admin/apiclient"
	apperrors "github.com/jrsteele09/distritherm-admin/internal/errors"
	"github.com/jrsteele09/distritherm-admin/pagination"
	"github.com/jrsteele09/distritherm-admin/resource"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var Endpoint = resource.Endpoint{Path: "/devis", Name: "Quote", ListKey: "devis", ItemKey: "devis"}

// CreateInput creates a quote request from a client's cart.
type CreateInput struct {
	UserID       int64  `json:"userId" validate:"required"`
	CartID       int64  `json:"cartId" validate:"required"`
	CommercialID *int64 `json:"commercialId,omitempty" validate:"omitempty,gt=0"`
	Comment      string `json:"comment,omitempty" validate:"max=2000"`
}

// UpdateInput changes a quote. Nil fields are left untouched.
type UpdateInput struct {
	Status       *Status    `json:"status,omitempty"`
	CommercialID *int64     `json:"commercialId,omitempty" validate:"omitempty,gt=0"`
	Comment      *string    `json:"comment,omitempty" validate:"omitempty,max=2000"`
	EndDate      *time.Time `json:"endDate,omitempty"`
}

// Filters narrows a quote listing.
type Filters struct {
	Status       Status
	CommercialID int64
}

func (f Filters) Apply(params pagination.Params) pagination.Params {
	params = params.WithFilter("status", string(f.Status))
	if f.CommercialID > 0 {
		params = params.WithFilter("commercialId", fmt.Sprint(f.CommercialID))
	} else {
		params = params.WithFilter("commercialId", "")
	}
	return params
}

type Service struct {
	client *apiclient.Client
	crud   *resource.Service[Quote, CreateInput, UpdateInput]
	policy TransitionPolicy // nil means PermissivePolicy
}

type ServiceOption func(*Service)

// WithTransitionPolicy restricts status changes. UpdateStatus then reads the current
// status before changing it.
func WithTransitionPolicy(p TransitionPolicy) ServiceOption {
	return func(s *Service) {
		s.policy = p
	}
}

func NewService(client *apiclient.Client, opts ...ServiceOption) *Service {
	s := &Service{
		client: client,
		crud:   resource.NewService[Quote, CreateInput, UpdateInput](client, Endpoint),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) List(ctx context.Context, params pagination.Params) (pagination.Page[Quote], error) {
	return s.crud.List(ctx, params)
}

// Search lists the quotes matching filters.
func (s *Service) Search(ctx context.Context, filters Filters, params pagination.Params) (pagination.Page[Quote], error) {
	if filters.Status != "" && !filters.Status.Valid() {
		return pagination.Page[Quote]{}, fmt.Errorf("%w: %q", apperrors.ErrInvalidStatus, filters.Status)
	}
	return s.crud.List(ctx, filters.Apply(params))
}

func (s *Service) Get(ctx context.Context, id int64) (Quote, error) {
	return s.crud.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, input CreateInput) (Quote, error) {
	return s.crud.Create(ctx, input)
}

// Update applies input. A status in input goes through the transition policy.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (Quote, error) {
	if input.Status != nil {
		if err := s.allowStatus(ctx, id, *input.Status); err != nil {
			return Quote{}, err
		}
	}
	return s.crud.Update(ctx, id, input)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.crud.Delete(ctx, id)
}

// ListByCommercial lists the quotes assigned to the commercial with user id commercialID.
func (s *Service) ListByCommercial(ctx context.Context, commercialID int64, params pagination.Params) (pagination.Page[Quote], error) {
	if commercialID <= 0 {
		return pagination.Page[Quote]{}, fmt.Errorf("%w: commercial id is required", apperrors.ErrInvalidInput)
	}
	return s.crud.ListAt(ctx, fmt.Sprintf("%s/by-commercial/%d", Endpoint.Path, commercialID), params)
}

// GetByCommercial returns quote id if it is assigned to commercialID.
func (s *Service) GetByCommercial(ctx context.Context, commercialID, id int64) (Quote, error) {
	path := fmt.Sprintf("%s/by-commercial/%d/%d", Endpoint.Path, commercialID, id)
	resp, err := s.client.Do(ctx, &apiclient.Request{Method: http.MethodGet, Path: path})
	if err != nil {
		return Quote{}, apiclient.Describe(err, "Quote")
	}
	return apiclient.DecodeItem[Quote](resp, Endpoint.ItemKey)
}

// AssignCommercial assigns the quote to a commercial, or unassigns it when commercialID
// is 0. The status is left unchanged.
func (s *Service) AssignCommercial(ctx context.Context, id, commercialID int64) (Quote, error) {
	if commercialID < 0 {
		return Quote{}, fmt.Errorf("%w: invalid commercial id %d", apperrors.ErrInvalidInput, commercialID)
	}
	var body map[string]any
	if commercialID == 0 {
		body = map[string]any{"commercialId": nil}
	} else {
		body = map[string]any{"commercialId": commercialID}
	}

	q, err := s.crud.Patch(ctx, id, body)
	if err != nil {
		return Quote{}, errors.Wrapf(err, "assigning quote %d", id)
	}
	log.Debug().Int64("quote", id).Int64("commercial", commercialID).Msg("Quote assigned")
	return q, nil
}

// UpdateStatus moves the quote to status, subject to the transition policy.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status Status) (Quote, error) {
	if err := s.allowStatus(ctx, id, status); err != nil {
		return Quote{}, err
	}
	return s.crud.Update(ctx, id, UpdateInput{Status: &status})
}

// allowStatus checks a move of quote id to status. Only a custom policy needs the
// current status, so the permissive default sends nothing.
func (s *Service) allowStatus(ctx context.Context, id int64, status Status) error {
	if s.policy == nil {
		return PermissivePolicy.Allow("", status)
	}
	current, err := s.crud.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.policy.Allow(current.Status, status)
}

var _ resource.Fetcher[Quote, CreateInput, UpdateInput] = (*Service)(nil)

// NewController returns a list controller for quotes. Quotes embed joined data such as
// the commercial, so every mutation reloads the page.
func NewController(svc *Service, auth resource.Authenticator, opts ...resource.Option[Quote]) *resource.Controller[Quote, CreateInput, UpdateInput] {
	opts = append([]resource.Option[Quote]{resource.WithName[Quote]("quotes")}, opts...)
	return resource.New[Quote, CreateInput, UpdateInput](svc, auth, opts...)
}
