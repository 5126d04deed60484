package api

import (
	"context"
	"fmt"
	"net/http"
)

// TablesService maps the /tables endpoints.
type TablesService struct {
	c *Client
}

// List returns one page of tables. The list endpoint is not enveloped.
func (s *TablesService) List(ctx context.Context, params PageParams) (Page[Table], error) {
	var page Page[Table]
	err := s.c.do(ctx, request{method: http.MethodGet, path: "/tables", query: params.values()}, &page)
	return page, err
}

// Get returns a single table.
func (s *TablesService) Get(ctx context.Context, id int64) (Table, error) {
	return getData[Table](ctx, s.c, request{method: http.MethodGet, path: tablePath(id)})
}

// Create adds a table.
func (s *TablesService) Create(ctx context.Context, in CreateTableInput) (Table, error) {
	return getData[Table](ctx, s.c, request{method: http.MethodPost, path: "/tables", body: in})
}

// Update patches the fields set on in.
func (s *TablesService) Update(ctx context.Context, id int64, in UpdateTableInput) (Table, error) {
	return getData[Table](ctx, s.c, request{method: http.MethodPatch, path: tablePath(id), body: in})
}

// Delete soft-deletes a table.
func (s *TablesService) Delete(ctx context.Context, id int64) error {
	return s.c.do(ctx, request{method: http.MethodDelete, path: tablePath(id)}, nil)
}

// UpdateStatus changes only the occupancy status of a table.
func (s *TablesService) UpdateStatus(ctx context.Context, id int64, status TableStatus) (Table, error) {
	return getData[Table](ctx, s.c, request{
		method: http.MethodPatch,
		path:   tablePath(id) + "/status",
		body:   UpdateTableStatusInput{Status: status},
	})
}

func tablePath(id int64) string {
	return fmt.Sprintf("/tables/%d", id)
}
