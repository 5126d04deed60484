package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// MenuService maps the /menu endpoints.
type MenuService struct {
	c *Client
}

// CategorySearch filters GET /menu/categories/search.
type CategorySearch struct {
	PageParams
	Name string
}

// BulkDeleteResult is the data payload of DELETE /menu/categories/bulk.
type BulkDeleteResult struct {
	DeletedCount int `json:"deletedCount"`
}

// Categories returns one page of menu categories.
func (s *MenuService) Categories(ctx context.Context, params PageParams) (Page[MenuCategory], error) {
	var page Page[MenuCategory]
	err := s.c.do(ctx, request{method: http.MethodGet, path: "/menu/categories", query: params.values()}, &page)
	return page, err
}

// SearchCategories filters categories by name. Unlike the plain list this
// endpoint wraps its page in the standard envelope.
func (s *MenuService) SearchCategories(ctx context.Context, search CategorySearch) (Page[MenuCategory], error) {
	values := search.values()
	if name := strings.TrimSpace(search.Name); name != "" {
		values.Set("name", name)
	}
	return getData[Page[MenuCategory]](ctx, s.c, request{method: http.MethodGet, path: "/menu/categories/search", query: values})
}

// Category returns a single category.
func (s *MenuService) Category(ctx context.Context, id int64) (MenuCategory, error) {
	return getData[MenuCategory](ctx, s.c, request{method: http.MethodGet, path: categoryPath(id)})
}

// CreateCategory adds a category.
func (s *MenuService) CreateCategory(ctx context.Context, in CreateCategoryInput) (MenuCategory, error) {
	return getData[MenuCategory](ctx, s.c, request{method: http.MethodPost, path: "/menu/categories", body: in})
}

// UpdateCategory patches the fields set on in.
func (s *MenuService) UpdateCategory(ctx context.Context, id int64, in UpdateCategoryInput) (MenuCategory, error) {
	return getData[MenuCategory](ctx, s.c, request{method: http.MethodPatch, path: categoryPath(id), body: in})
}

// DeleteCategory soft-deletes a category.
func (s *MenuService) DeleteCategory(ctx context.Context, id int64) error {
	return s.c.do(ctx, request{method: http.MethodDelete, path: categoryPath(id)}, nil)
}

// BulkDeleteCategories soft-deletes every category in ids.
func (s *MenuService) BulkDeleteCategories(ctx context.Context, ids []int64) (BulkDeleteResult, error) {
	if len(ids) == 0 {
		return BulkDeleteResult{}, nil
	}
	return getData[BulkDeleteResult](ctx, s.c, request{
		method: http.MethodDelete,
		path:   "/menu/categories/bulk",
		body:   map[string][]int64{"ids": ids},
	})
}

// Items returns one page of menu items.
func (s *MenuService) Items(ctx context.Context, params PageParams) (Page[MenuItem], error) {
	var page Page[MenuItem]
	err := s.c.do(ctx, request{method: http.MethodGet, path: "/menu/items", query: params.values()}, &page)
	return page, err
}

// Item returns a single menu item.
func (s *MenuService) Item(ctx context.Context, id int64) (MenuItem, error) {
	return getData[MenuItem](ctx, s.c, request{method: http.MethodGet, path: itemPath(id)})
}

// CreateItem adds a menu item.
func (s *MenuService) CreateItem(ctx context.Context, in CreateItemInput) (MenuItem, error) {
	return getData[MenuItem](ctx, s.c, request{method: http.MethodPost, path: "/menu/items", body: in})
}

// UpdateItem patches the fields set on in.
func (s *MenuService) UpdateItem(ctx context.Context, id int64, in UpdateItemInput) (MenuItem, error) {
	return getData[MenuItem](ctx, s.c, request{method: http.MethodPatch, path: itemPath(id), body: in})
}

// DeleteItem soft-deletes a menu item.
func (s *MenuService) DeleteItem(ctx context.Context, id int64) error {
	return s.c.do(ctx, request{method: http.MethodDelete, path: itemPath(id)}, nil)
}

func categoryPath(id int64) string {
	return fmt.Sprintf("/menu/categories/%d", id)
}

func itemPath(id int64) string {
	return fmt.Sprintf("/menu/items/%d", id)
}
