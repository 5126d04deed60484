package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sazonarte/frontdesk/internal/app"
	"github.com/sazonarte/frontdesk/internal/query"
)

// errNotSignedIn is returned by commands that need a stored session.
var errNotSignedIn = errors.New("not signed in; run `frontdesk login` first")

type rootOptions struct {
	configPath string
	prefsPath  string

	open func(app.Options) (*app.Env, error)
	run  func(context.Context, app.Options) error
}

func (o *rootOptions) appOptions() app.Options {
	return app.Options{ConfigPath: o.configPath, PrefsPath: o.prefsPath}
}

// withEnv opens the application graph, hands it to fn and closes it again.
func (o *rootOptions) withEnv(fn func(env *app.Env) error) error {
	env, err := o.open(o.appOptions())
	if err != nil {
		return err
	}
	runErr := fn(env)
	if err := env.Close(); err != nil && runErr == nil {
		return fmt.Errorf("close: %w", err)
	}
	return runErr
}

// withSession is withEnv for commands that act on behalf of the signed-in user.
func (o *rootOptions) withSession(fn func(env *app.Env) error) error {
	return o.withEnv(func(env *app.Env) error {
		if !env.Store.Snapshot().Authenticated() {
			return errNotSignedIn
		}
		return fn(env)
	})
}

// NewRootCmd builds the frontdesk command tree. Without a subcommand it
// starts the interactive console.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&rootOptions{open: app.Open, run: app.Run})
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frontdesk",
		Short: "Front-of-house console for the restaurant floor and menu",
		Long: `frontdesk keeps the dining-room floor and the menu at hand from a terminal.

Run without arguments to open the console. Subcommands cover the same
operations for scripts and quick checks.

Controls in the console:
  1/2/3, Tab - Switch between tables, categories and items
  j/k        - Move the selection
  s, Enter   - Next table status
  a          - Toggle item availability
  ?          - Help
  Ctrl+C     - Quit`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd.Context(), opts.appOptions())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default ~/.config/frontdesk/config.toml)")
	flags.StringVar(&opts.prefsPath, "prefs", "", "preferences file (default ~/.config/frontdesk/prefs.toml)")

	cmd.AddCommand(
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newTablesCmd(opts),
		newCategoriesCmd(opts),
		newItemsCmd(opts),
	)
	return cmd
}

// await blocks until sub settles and returns its result. A failed load
// returns the error even when older data is present.
func await(ctx context.Context, sub *query.Subscription) (query.Result, error) {
	for {
		r := sub.Result()
		if !r.Fetching {
			switch r.Status {
			case query.Success:
				return r, nil
			case query.Error:
				return r, r.Err
			}
		}
		select {
		case <-ctx.Done():
			return r, ctx.Err()
		case _, ok := <-sub.C():
			if !ok {
				return sub.Result(), errors.New("subscription closed")
			}
		}
	}
}

// load subscribes with open, waits for the first settled result and returns
// its data as T.
func load[T any](ctx context.Context, open func(...query.Option) *query.Subscription) (T, error) {
	sub := open()
	defer sub.Close()

	r, err := await(ctx, sub)
	if err != nil {
		var zero T
		return zero, err
	}
	data, ok := query.Data[T](r)
	if !ok {
		return data, fmt.Errorf("unexpected %T for %s", r.Data, sub.Key())
	}
	return data, nil
}
