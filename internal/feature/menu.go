package feature

import (
	"context"
	"strings"
	"time"

	"github.com/sazonarte/frontdesk/internal/api"
	"github.com/sazonarte/frontdesk/internal/query"
)

// MenuAPI is the /menu client surface.
type MenuAPI interface {
	Categories(ctx context.Context, params api.PageParams) (api.Page[api.MenuCategory], error)
	SearchCategories(ctx context.Context, search api.CategorySearch) (api.Page[api.MenuCategory], error)
	Category(ctx context.Context, id int64) (api.MenuCategory, error)
	CreateCategory(ctx context.Context, in api.CreateCategoryInput) (api.MenuCategory, error)
	UpdateCategory(ctx context.Context, id int64, in api.UpdateCategoryInput) (api.MenuCategory, error)
	DeleteCategory(ctx context.Context, id int64) error
	BulkDeleteCategories(ctx context.Context, ids []int64) (api.BulkDeleteResult, error)

	Items(ctx context.Context, params api.PageParams) (api.Page[api.MenuItem], error)
	Item(ctx context.Context, id int64) (api.MenuItem, error)
	CreateItem(ctx context.Context, in api.CreateItemInput) (api.MenuItem, error)
	UpdateItem(ctx context.Context, id int64, in api.UpdateItemInput) (api.MenuItem, error)
	DeleteItem(ctx context.Context, id int64) error
}

// The menu changes rarely during service.
const menuStaleAfter = 5 * time.Minute

// Categories exposes menu category reads and writes.
type Categories struct {
	cache  *query.Cache
	client MenuAPI
}

// NewCategories returns the categories feature.
func NewCategories(cache *query.Cache, client MenuAPI) *Categories {
	return &Categories{cache: cache, client: client}
}

// List subscribes to every category. Data is []api.MenuCategory.
func (c *Categories) List(opts ...query.Option) *query.Subscription {
	opts = append([]query.Option{query.WithStaleAfter(menuStaleAfter)}, opts...)
	return c.cache.Subscribe(CategoriesKey(), func(ctx context.Context) (any, error) {
		return allPages(ctx, c.client.Categories)
	}, opts...)
}

// Search subscribes to categories whose name matches. Data is []api.MenuCategory.
func (c *Categories) Search(name string, opts ...query.Option) *query.Subscription {
	name = strings.TrimSpace(name)
	opts = append([]query.Option{query.WithStaleAfter(menuStaleAfter), query.Enabled(name != "")}, opts...)
	return c.cache.Subscribe(CategorySearchKey(name), func(ctx context.Context) (any, error) {
		page, err := c.client.SearchCategories(ctx, api.CategorySearch{
			PageParams: api.PageParams{Page: 1, Limit: api.DefaultPageLimit},
			Name:       name,
		})
		if err != nil {
			return nil, err
		}
		return page.Data, nil
	}, opts...)
}

// Detail subscribes to one category. Data is api.MenuCategory.
func (c *Categories) Detail(id int64, opts ...query.Option) *query.Subscription {
	opts = append([]query.Option{query.Enabled(id > 0)}, opts...)
	return c.cache.Subscribe(CategoryKey(id), func(ctx context.Context) (any, error) {
		return c.client.Category(ctx, id)
	}, opts...)
}

// Create validates in and adds a category.
func (c *Categories) Create(ctx context.Context, in api.CreateCategoryInput) (api.MenuCategory, error) {
	if err := Validate(in); err != nil {
		return api.MenuCategory{}, err
	}
	return query.Mutate(ctx, c.cache, query.Mutation[api.MenuCategory]{
		Name:       "create category",
		Invalidate: []query.Key{CategoriesKey()},
		Run: func(ctx context.Context) (api.MenuCategory, error) {
			return c.client.CreateCategory(ctx, in)
		},
	})
}

// Update validates in and patches a category.
func (c *Categories) Update(ctx context.Context, id int64, in api.UpdateCategoryInput) (api.MenuCategory, error) {
	if err := Validate(in); err != nil {
		return api.MenuCategory{}, err
	}
	return query.Mutate(ctx, c.cache, query.Mutation[api.MenuCategory]{
		Name:       "update category",
		Invalidate: []query.Key{CategoriesKey()},
		Run: func(ctx context.Context) (api.MenuCategory, error) {
			return c.client.UpdateCategory(ctx, id, in)
		},
	})
}

// Delete soft-deletes a category. Its items go with it, so both lists refetch.
func (c *Categories) Delete(ctx context.Context, id int64) error {
	_, err := query.Mutate(ctx, c.cache, query.Mutation[struct{}]{
		Name:       "delete category",
		Remove:     []query.Key{CategoryKey(id)},
		Invalidate: []query.Key{CategoriesKey(), ItemsKey()},
		Run: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.client.DeleteCategory(ctx, id)
		},
	})
	return err
}

// BulkDelete soft-deletes every category in ids and returns how many went.
func (c *Categories) BulkDelete(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	remove := make([]query.Key, len(ids))
	for i, id := range ids {
		remove[i] = CategoryKey(id)
	}
	res, err := query.Mutate(ctx, c.cache, query.Mutation[api.BulkDeleteResult]{
		Name:       "bulk delete categories",
		Remove:     remove,
		Invalidate: []query.Key{CategoriesKey(), ItemsKey()},
		Run: func(ctx context.Context) (api.BulkDeleteResult, error) {
			return c.client.BulkDeleteCategories(ctx, ids)
		},
	})
	return res.DeletedCount, err
}

// Items exposes menu item reads and writes.
type Items struct {
	cache  *query.Cache
	client MenuAPI
}

// NewItems returns the items feature.
func NewItems(cache *query.Cache, client MenuAPI) *Items {
	return &Items{cache: cache, client: client}
}

// List subscribes to every menu item. Data is []api.MenuItem.
func (it *Items) List(opts ...query.Option) *query.Subscription {
	opts = append([]query.Option{query.WithStaleAfter(menuStaleAfter)}, opts...)
	return it.cache.Subscribe(ItemsKey(), func(ctx context.Context) (any, error) {
		return allPages(ctx, it.client.Items)
	}, opts...)
}

// Detail subscribes to one item. Data is api.MenuItem.
func (it *Items) Detail(id int64, opts ...query.Option) *query.Subscription {
	opts = append([]query.Option{query.Enabled(id > 0)}, opts...)
	return it.cache.Subscribe(ItemKey(id), func(ctx context.Context) (any, error) {
		return it.client.Item(ctx, id)
	}, opts...)
}

// Create validates in and adds an item. Categories embed their items, so the
// category list refetches too.
func (it *Items) Create(ctx context.Context, in api.CreateItemInput) (api.MenuItem, error) {
	in.Price = strings.TrimSpace(in.Price)
	if err := Validate(in); err != nil {
		return api.MenuItem{}, err
	}
	return query.Mutate(ctx, it.cache, query.Mutation[api.MenuItem]{
		Name:       "create item",
		Invalidate: []query.Key{ItemsKey(), CategoriesKey()},
		Run: func(ctx context.Context) (api.MenuItem, error) {
			return it.client.CreateItem(ctx, in)
		},
	})
}

// Update validates in and patches an item.
func (it *Items) Update(ctx context.Context, id int64, in api.UpdateItemInput) (api.MenuItem, error) {
	if err := Validate(in); err != nil {
		return api.MenuItem{}, err
	}
	return query.Mutate(ctx, it.cache, query.Mutation[api.MenuItem]{
		Name:       "update item",
		Invalidate: []query.Key{ItemsKey(), CategoriesKey()},
		Run: func(ctx context.Context) (api.MenuItem, error) {
			return it.client.UpdateItem(ctx, id, in)
		},
	})
}

// SetAvailable toggles whether an item can be ordered, optimistically.
func (it *Items) SetAvailable(ctx context.Context, id int64, available bool) (api.MenuItem, error) {
	return query.Mutate(ctx, it.cache, query.Mutation[api.MenuItem]{
		Name: "set item availability",
		Optimistic: []query.Optimistic{{Key: ItemsKey(), Update: func(old any) any {
			items, ok := old.([]api.MenuItem)
			if !ok {
				return old
			}
			next := make([]api.MenuItem, len(items))
			copy(next, items)
			for i := range next {
				if next[i].ID == id {
					next[i].IsAvailable = available
				}
			}
			return next
		}}},
		Invalidate: []query.Key{ItemsKey(), CategoriesKey()},
		Run: func(ctx context.Context) (api.MenuItem, error) {
			return it.client.UpdateItem(ctx, id, api.UpdateItemInput{IsAvailable: &available})
		},
	})
}

// Delete soft-deletes an item and drops its detail entry.
func (it *Items) Delete(ctx context.Context, id int64) error {
	_, err := query.Mutate(ctx, it.cache, query.Mutation[struct{}]{
		Name:       "delete item",
		Remove:     []query.Key{ItemKey(id)},
		Invalidate: []query.Key{ItemsKey(), CategoriesKey()},
		Run: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, it.client.DeleteItem(ctx, id)
		},
	})
	return err
}
