package resource

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jrsteele09/distritherm-admin/apiclient"
	"github.com/jrsteele09/distritherm-admin/internal/validation"
	"github.com/jrsteele09/distritherm-admin/pagination"
	"github.com/pkg/errors"
)

// Endpoint describes a REST collection.
type Endpoint struct {
	Path    string // e.g. "/marks"
	Name    string // display name used in messages, e.g. "Brand"
	ListKey string // payload key used when the list is not under "data"
	ItemKey string // payload key used when the item is not under "data"
}

func (e Endpoint) itemPath(id int64) string {
	return fmt.Sprintf("%s/%d", e.Path, id)
}

// Service is the plain CRUD client for one Endpoint. Inputs are validated before they
// are sent. It satisfies Fetcher.
type Service[T, C, U any] struct {
	client   *apiclient.Client
	endpoint Endpoint
}

func NewService[T, C, U any](client *apiclient.Client, endpoint Endpoint) *Service[T, C, U] {
	return &Service[T, C, U]{client: client, endpoint: endpoint}
}

func (s *Service[T, C, U]) Endpoint() Endpoint {
	return s.endpoint
}

func (s *Service[T, C, U]) List(ctx context.Context, params pagination.Params) (pagination.Page[T], error) {
	return s.ListAt(ctx, s.endpoint.Path, params)
}

// ListAt lists a sub collection of the endpoint, such as /products/promotions.
func (s *Service[T, C, U]) ListAt(ctx context.Context, path string, params pagination.Params) (pagination.Page[T], error) {
	resp, err := s.client.Do(ctx, &apiclient.Request{Method: http.MethodGet, Path: path, Query: params.Query()})
	if err != nil {
		return pagination.Page[T]{}, errors.Wrapf(apiclient.Describe(err, s.endpoint.Name), "listing %s", path)
	}
	return apiclient.DecodeList[T](resp, params, s.endpoint.ListKey)
}

func (s *Service[T, C, U]) Get(ctx context.Context, id int64) (T, error) {
	resp, err := s.client.Do(ctx, &apiclient.Request{Method: http.MethodGet, Path: s.endpoint.itemPath(id)})
	if err != nil {
		var zero T
		return zero, apiclient.Describe(err, s.endpoint.Name)
	}
	return apiclient.DecodeItem[T](resp, s.endpoint.ItemKey)
}

func (s *Service[T, C, U]) Create(ctx context.Context, input C) (T, error) {
	var zero T
	if err := validation.Struct(input); err != nil {
		return zero, err
	}
	resp, err := s.client.Do(ctx, &apiclient.Request{Method: http.MethodPost, Path: s.endpoint.Path, Body: input})
	if err != nil {
		return zero, errors.Wrapf(apiclient.Describe(err, s.endpoint.Name), "creating %s", s.endpoint.Name)
	}
	return apiclient.DecodeItem[T](resp, s.endpoint.ItemKey)
}

func (s *Service[T, C, U]) Update(ctx context.Context, id int64, input U) (T, error) {
	return s.put(ctx, id, input)
}

// Patch sends an arbitrary body to PUT <path>/<id>, for partial updates that do not
// fit U.
func (s *Service[T, C, U]) Patch(ctx context.Context, id int64, body any) (T, error) {
	return s.put(ctx, id, body)
}

func (s *Service[T, C, U]) put(ctx context.Context, id int64, body any) (T, error) {
	var zero T
	if err := validation.Struct(body); err != nil {
		return zero, err
	}
	resp, err := s.client.Do(ctx, &apiclient.Request{Method: http.MethodPut, Path: s.endpoint.itemPath(id), Body: body})
	if err != nil {
		return zero, apiclient.Describe(err, s.endpoint.Name)
	}
	return apiclient.DecodeItem[T](resp, s.endpoint.ItemKey)
}

func (s *Service[T, C, U]) Delete(ctx context.Context, id int64) error {
	if _, err := s.client.Do(ctx, &apiclient.Request{Method: http.MethodDelete, Path: s.endpoint.itemPath(id)}); err != nil {
		return apiclient.Describe(err, s.endpoint.Name)
	}
	return nil
}

var _ Fetcher[struct{}, struct{}, struct{}] = (*Service[struct{}, struct{}, struct{}])(nil)
