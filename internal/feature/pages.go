package feature

import (
	"context"

	"github.com/sazonarte/frontdesk/internal/api"
)

// maxPages bounds how far a list fetch follows pagination.
const maxPages = 50

// allPages walks a paginated endpoint and returns every row.
func allPages[T any](ctx context.Context, list func(context.Context, api.PageParams) (api.Page[T], error)) ([]T, error) {
	var all []T
	for page := 1; page <= maxPages; page++ {
		p, err := list(ctx, api.PageParams{Page: page, Limit: api.DefaultPageLimit})
		if err != nil {
			return nil, err
		}
		all = append(all, p.Data...)
		if len(p.Data) == 0 || p.Pagination.TotalPages <= page {
			break
		}
	}
	if all == nil {
		all = []T{}
	}
	return all, nil
}
