package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"github.com/sazonarte/frontdesk/internal/api"
	"github.com/sazonarte/frontdesk/internal/config"
	"github.com/sazonarte/frontdesk/internal/feature"
	"github.com/sazonarte/frontdesk/internal/prefs"
	"github.com/sazonarte/frontdesk/internal/query"
	"github.com/sazonarte/frontdesk/internal/session"
	"github.com/sazonarte/frontdesk/internal/ui"
)

const userAgent = "frontdesk"

// Options configure the frontdesk application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/frontdesk/prefs.toml
}

// Env is the wired object graph shared by the console and the CLI commands.
type Env struct {
	Config     config.Config
	Prefs      prefs.Prefs
	PrefsPath  string
	Client     *api.Client
	Store      *session.Store
	Session    *session.Manager
	Cache      *query.Cache
	Tables     *feature.Tables
	Categories *feature.Categories
	Items      *feature.Items
	Profile    *feature.Profile

	storage session.Storage
	closers []func() error
}

// Open loads configuration, restores the saved session and wires the API
// client, cache and features around it. Call Close when done.
func Open(opts Options) (*Env, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	userPrefs, _ := prefs.Load(opts.PrefsPath)

	env := &Env{Config: cfg, Prefs: userPrefs, PrefsPath: opts.PrefsPath}

	storage, closeStorage, err := openStorage(cfg.Session)
	if err != nil {
		return nil, err
	}
	env.storage = storage
	if closeStorage != nil {
		env.closers = append(env.closers, closeStorage)
	}

	env.Store = session.NewStore(storage)
	snap := env.Store.Restore()
	glog.Infof("[app] session restored: %s", snap.State)

	env.Client, err = api.NewClient(cfg.APIBaseURL,
		api.WithTimeout(cfg.RequestTimeout),
		api.WithTokenSource(env.Store),
		api.WithUnauthorizedHandler(env.Store.Invalidate),
		api.WithRateLimit(cfg.RequestsPerSecond, cfg.Burst),
		api.WithUserAgent(userAgent),
	)
	if err != nil {
		_ = env.Close()
		return nil, fmt.Errorf("init api client: %w", err)
	}

	env.Cache, err = query.New(query.Config{
		StaleAfter:    cfg.StaleAfter,
		GCAfter:       cfg.GCAfter,
		Retry:         cfg.Retry,
		RetryDelay:    cfg.RetryDelay,
		MaxRetryDelay: cfg.MaxRetryDelay,
	})
	if err != nil {
		_ = env.Close()
		return nil, fmt.Errorf("init query cache: %w", err)
	}
	env.closers = append(env.closers, func() error { env.Cache.Close(); return nil })

	env.Session = session.NewManager(env.Store, env.Client.Auth(), env.Client.Profile())
	env.Tables = feature.NewTables(env.Cache, env.Client.Tables())
	env.Categories = feature.NewCategories(env.Cache, env.Client.Menu())
	env.Items = feature.NewItems(env.Cache, env.Client.Menu())
	env.Profile = feature.NewProfile(env.Cache, env.Client.Profile())
	return env, nil
}

func openStorage(cfg config.SessionConfig) (session.Storage, func() error, error) {
	switch cfg.Backend {
	case config.BackendBolt:
		b, err := session.OpenBoltStorage(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open session db: %w", err)
		}
		return b, b.Close, nil
	default:
		f, err := session.NewFileStorage(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open session file: %w", err)
		}
		return f, nil, nil
	}
}

// Close waits for background logout calls and releases storage and cache.
func (e *Env) Close() error {
	if e.Session != nil {
		e.Session.Wait()
	}
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}

// Run boots the console until the user quits or the context is cancelled.
// The poller, the session file watcher and the sign-out cleanup run beside
// the UI and stop with it.
func Run(ctx context.Context, opts Options) error {
	env, err := Open(opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := env.Close(); err != nil {
			glog.Errorf("[app] close: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return ui.Run(ui.Options{
			Context:    ctx,
			Session:    env.Session,
			Tables:     env.Tables,
			Categories: env.Categories,
			Items:      env.Items,
			ThemeName:  env.Prefs.Theme,
			PrefsPath:  env.PrefsPath,
			LastView:   env.Prefs.LastView,
		})
	})

	g.Go(func() error {
		p := &Poller{
			Session:   env.Store,
			Cache:     env.Cache,
			Refresher: env.Session,
			Interval:  env.Config.RefreshInterval,
		}
		return p.Run(ctx)
	})

	clearLoop := clearOnSignOut(env.Store, env.Cache)
	g.Go(func() error {
		return clearLoop(ctx)
	})

	if w, ok := env.storage.(session.Watcher); ok {
		g.Go(func() error {
			if err := w.Watch(ctx, env.Store.Reload); err != nil {
				glog.Warningf("[app] session watch stopped: %v", err)
			}
			return nil
		})
	}

	return g.Wait()
}

type clearer interface {
	Clear() int
}

// clearOnSignOut drops all cached server state whenever the session leaves
// Authenticated, so the next user never sees the previous one's data. It
// subscribes immediately and returns the loop to run.
func clearOnSignOut(store *session.Store, cache clearer) func(ctx context.Context) error {
	changes, stop := store.Changes()
	authenticated := store.Snapshot().Authenticated()
	return func(ctx context.Context) error {
		defer stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-changes:
			}
			now := store.Snapshot().Authenticated()
			if authenticated && !now {
				n := cache.Clear()
				glog.V(1).Infof("[app] signed out, cleared %d cache entries", n)
			}
			authenticated = now
		}
	}
}
