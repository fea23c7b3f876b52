package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// Page is one page of a list endpoint.
type Page[T any] struct {
	Items      []T
	Page       int
	PageSize   int
	Total      int
	TotalPages int
}

// Resource is a CRUD endpoint such as /departments/ whose list payload keeps
// its rows under collection, e.g. {"departments": [...], "total": 47}.
type Resource[T any] struct {
	client     *Client
	path       string
	collection string
}

// NewResource binds path (with trailing slash) to c.
func NewResource[T any](c *Client, path, collection string) *Resource[T] {
	return &Resource[T]{client: c, path: path, collection: collection}
}

// Name is the collection name, used as the cache key root.
func (r *Resource[T]) Name() string {
	return r.collection
}

func (r *Resource[T]) itemPath(id string) string {
	return strings.TrimSuffix(r.path, "/") + "/" + url.PathEscape(id)
}

// List fetches one page. params carries page, limit and filters verbatim.
func (r *Resource[T]) List(ctx context.Context, params url.Values) (Page[T], error) {
	var raw map[string]json.RawMessage
	if err := r.client.do(ctx, request{method: http.MethodGet, path: r.path, query: params}, &raw); err != nil {
		return Page[T]{}, fmt.Errorf("failed to list %s: %w", r.collection, err)
	}

	page := Page[T]{Items: []T{}}
	if items, ok := raw[r.collection]; ok && string(items) != "null" {
		if err := json.Unmarshal(items, &page.Items); err != nil {
			return Page[T]{}, fmt.Errorf("failed to decode %s: %w", r.collection, err)
		}
	}
	for field, dst := range map[string]*int{
		"page":        &page.Page,
		"page_size":   &page.PageSize,
		"total":       &page.Total,
		"total_pages": &page.TotalPages,
	} {
		if v, ok := raw[field]; ok {
			if err := json.Unmarshal(v, dst); err != nil {
				r.client.logger.Warn("ignoring malformed page field",
					zap.String("collection", r.collection),
					zap.String("field", field),
					zap.ByteString("value", v),
					zap.Error(err))
			}
		}
	}
	return page, nil
}

// Get fetches one record by id.
func (r *Resource[T]) Get(ctx context.Context, id string) (T, error) {
	var out T
	if err := r.client.do(ctx, request{method: http.MethodGet, path: r.itemPath(id)}, &out); err != nil {
		return out, fmt.Errorf("failed to get %s %s: %w", r.collection, id, err)
	}
	return out, nil
}

// Create posts body and returns the created record.
func (r *Resource[T]) Create(ctx context.Context, body any) (T, error) {
	var out T
	if err := r.client.do(ctx, request{method: http.MethodPost, path: r.path, body: body}, &out); err != nil {
		return out, fmt.Errorf("failed to create %s: %w", r.collection, err)
	}
	return out, nil
}

// Update puts body (full or partial) to the record and returns it.
func (r *Resource[T]) Update(ctx context.Context, id string, body any) (T, error) {
	var out T
	if err := r.client.do(ctx, request{method: http.MethodPut, path: r.itemPath(id), body: body}, &out); err != nil {
		return out, fmt.Errorf("failed to update %s %s: %w", r.collection, id, err)
	}
	return out, nil
}

// Delete removes the record.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	if err := r.client.do(ctx, request{method: http.MethodDelete, path: r.itemPath(id)}, nil); err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", r.collection, id, err)
	}
	return nil
}
