package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/jrsteele09/distritherm-admin/internal/validation"
	"github.com/jrsteele09/distritherm-admin/pagination"
)

// Envelope is the wrapper every endpoint returns: a message next to the payload, and
// pagination meta for lists.
type Envelope struct {
	Message string           `json:"message"`
	Data    json.RawMessage  `json:"data,omitempty"`
	Meta    *pagination.Meta `json:"meta,omitempty"`
}

func (r *Response) fields() (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(r.Body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}
	return m, nil
}

// payload returns the raw resource: "data" first, then the first of keys present, then
// the whole body.
func (r *Response) payload(keys ...string) (json.RawMessage, map[string]json.RawMessage, error) {
	m, err := r.fields()
	if err != nil {
		return nil, nil, err
	}
	if m == nil {
		return bytes.TrimSpace(r.Body), nil, nil
	}
	for _, k := range append([]string{"data"}, keys...) {
		if raw, ok := m[k]; ok && len(raw) > 0 && string(raw) != "null" {
			return raw, m, nil
		}
	}
	return bytes.TrimSpace(r.Body), m, nil
}

// DecodeList decodes a list endpoint into a page. Meta is taken from the envelope and
// derived from the item count when the server omits it. Each item is validated.
func DecodeList[T any](resp *Response, params pagination.Params, keys ...string) (pagination.Page[T], error) {
	raw, m, err := resp.payload(keys...)
	if err != nil {
		return pagination.Page[T]{}, err
	}

	// Some endpoints nest the page: {"data": {"items"|"data": [...], "meta": {...}}}.
	if len(raw) > 0 && raw[0] == '{' {
		nested := &Response{Body: raw}
		if inner, innerFields, err := nested.payload(append([]string{"items"}, keys...)...); err == nil && len(inner) > 0 && inner[0] == '[' {
			raw = inner
			if _, ok := m["meta"]; !ok {
				m = innerFields
			}
		}
	}

	items := make([]T, 0)
	if err := json.Unmarshal(raw, &items); err != nil {
		return pagination.Page[T]{}, fmt.Errorf("decoding list: %w", err)
	}
	for i := range items {
		if err := validation.Struct(items[i]); err != nil {
			return pagination.Page[T]{}, fmt.Errorf("invalid list item %d: %w", i, err)
		}
	}

	rawMeta, ok := m["meta"]
	if !ok {
		// Unpaginated endpoint: the whole collection came back.
		return pagination.Page[T]{Items: items, Meta: pagination.Meta{
			Total:    len(items),
			Page:     1,
			Limit:    max(len(items), pagination.NormalizeLimit(params.Limit)),
			LastPage: 1,
		}}, nil
	}

	var meta pagination.Meta
	if err := json.Unmarshal(rawMeta, &meta); err != nil {
		return pagination.Page[T]{}, fmt.Errorf("decoding meta: %w", err)
	}
	if meta.Limit == 0 {
		meta.Limit = pagination.NormalizeLimit(params.Limit)
	}
	if meta.Page == 0 {
		meta.Page = pagination.NormalizePage(params.Page)
	}
	return pagination.Page[T]{Items: items, Meta: meta.Normalize()}, nil
}

// DecodeItem decodes a single resource and validates it.
func DecodeItem[T any](resp *Response, keys ...string) (T, error) {
	var item T
	raw, _, err := resp.payload(keys...)
	if err != nil {
		return item, err
	}
	if err := json.Unmarshal(raw, &item); err != nil {
		return item, fmt.Errorf("decoding item: %w", err)
	}
	if err := validation.Struct(item); err != nil {
		return item, fmt.Errorf("invalid item: %w", err)
	}
	return item, nil
}

// DecodeMessage returns the envelope message, if any.
func DecodeMessage(resp *Response) string {
	var env Envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return ""
	}
	return env.Message
}
