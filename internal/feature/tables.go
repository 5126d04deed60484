package feature

import (
	"context"
	"fmt"

	"github.com/sazonarte/frontdesk/internal/api"
	"github.com/sazonarte/frontdesk/internal/query"
)

// TablesAPI is the /tables client surface.
type TablesAPI interface {
	List(ctx context.Context, params api.PageParams) (api.Page[api.Table], error)
	Get(ctx context.Context, id int64) (api.Table, error)
	Create(ctx context.Context, in api.CreateTableInput) (api.Table, error)
	Update(ctx context.Context, id int64, in api.UpdateTableInput) (api.Table, error)
	Delete(ctx context.Context, id int64) error
	UpdateStatus(ctx context.Context, id int64, status api.TableStatus) (api.Table, error)
}

// tablesRetry is higher than the cache default; the floor view is the
// console's landing screen.
const tablesRetry = 2

// Tables exposes table reads and writes through the query cache.
type Tables struct {
	cache  *query.Cache
	client TablesAPI
}

// NewTables returns the tables feature.
func NewTables(cache *query.Cache, client TablesAPI) *Tables {
	return &Tables{cache: cache, client: client}
}

// List subscribes to every table. Data is []api.Table.
func (t *Tables) List(opts ...query.Option) *query.Subscription {
	opts = append([]query.Option{query.WithRetry(tablesRetry)}, opts...)
	return t.cache.Subscribe(TablesKey(), func(ctx context.Context) (any, error) {
		return allPages(ctx, t.client.List)
	}, opts...)
}

// Detail subscribes to one table. Data is api.Table. A non-positive id
// subscribes without fetching.
func (t *Tables) Detail(id int64, opts ...query.Option) *query.Subscription {
	opts = append([]query.Option{query.Enabled(id > 0)}, opts...)
	return t.cache.Subscribe(TableKey(id), func(ctx context.Context) (any, error) {
		return t.client.Get(ctx, id)
	}, opts...)
}

// Create validates in and adds a table.
func (t *Tables) Create(ctx context.Context, in api.CreateTableInput) (api.Table, error) {
	if err := Validate(in); err != nil {
		return api.Table{}, err
	}
	return query.Mutate(ctx, t.cache, query.Mutation[api.Table]{
		Name:       "create table",
		Invalidate: []query.Key{TablesKey()},
		Run: func(ctx context.Context) (api.Table, error) {
			return t.client.Create(ctx, in)
		},
	})
}

// Update validates in and patches a table.
func (t *Tables) Update(ctx context.Context, id int64, in api.UpdateTableInput) (api.Table, error) {
	if err := Validate(in); err != nil {
		return api.Table{}, err
	}
	return query.Mutate(ctx, t.cache, query.Mutation[api.Table]{
		Name:       "update table",
		Invalidate: []query.Key{TablesKey()},
		Run: func(ctx context.Context) (api.Table, error) {
			return t.client.Update(ctx, id, in)
		},
	})
}

// Delete soft-deletes a table and drops its detail entry.
func (t *Tables) Delete(ctx context.Context, id int64) error {
	_, err := query.Mutate(ctx, t.cache, query.Mutation[struct{}]{
		Name:       "delete table",
		Remove:     []query.Key{TableKey(id)},
		Invalidate: []query.Key{TablesKey()},
		Run: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, t.client.Delete(ctx, id)
		},
	})
	return err
}

// UpdateStatus changes a table's status optimistically: the list and the
// detail entry show the new status at once and revert if the server refuses.
func (t *Tables) UpdateStatus(ctx context.Context, id int64, status api.TableStatus) (api.Table, error) {
	if !status.Valid() {
		return api.Table{}, &ValidationError{Fields: map[string]string{"status": fmt.Sprintf("must be one of %v", api.TableStatuses)}}
	}
	return query.Mutate(ctx, t.cache, query.Mutation[api.Table]{
		Name: "update table status",
		Optimistic: []query.Optimistic{
			{Key: TablesKey(), Update: func(old any) any {
				tables, ok := old.([]api.Table)
				if !ok {
					return old
				}
				next := make([]api.Table, len(tables))
				copy(next, tables)
				for i := range next {
					if next[i].ID == id {
						next[i].Status = status
					}
				}
				return next
			}},
			{Key: TableKey(id), Update: func(old any) any {
				table, ok := old.(api.Table)
				if !ok {
					return old
				}
				table.Status = status
				return table
			}},
		},
		Invalidate: []query.Key{TablesKey()},
		Run: func(ctx context.Context) (api.Table, error) {
			return t.client.UpdateStatus(ctx, id, status)
		},
	})
}
