package feature

import (
	"context"

	"github.com/sazonarte/frontdesk/internal/api"
	"github.com/sazonarte/frontdesk/internal/query"
)

// ProfileAPI loads the logged-in user.
type ProfileAPI interface {
	Me(ctx context.Context) (api.User, error)
}

// Profile exposes the current user's profile.
type Profile struct {
	cache  *query.Cache
	client ProfileAPI
}

// NewProfile returns the profile feature.
func NewProfile(cache *query.Cache, client ProfileAPI) *Profile {
	return &Profile{cache: cache, client: client}
}

// Me subscribes to the logged-in user. Data is api.User.
func (p *Profile) Me(opts ...query.Option) *query.Subscription {
	return p.cache.Subscribe(MeKey(), func(ctx context.Context) (any, error) {
		return p.client.Me(ctx)
	}, opts...)
}
