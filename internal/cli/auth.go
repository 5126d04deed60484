package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sazonarte/frontdesk/internal/api"
	"github.com/sazonarte/frontdesk/internal/app"
	"github.com/sazonarte/frontdesk/internal/feature"
)

// prompter reads answers from the command's stdin. Passwords are read
// without echo when stdin is a terminal.
type prompter struct {
	cmd    *cobra.Command
	reader *bufio.Reader
}

func newPrompter(cmd *cobra.Command) *prompter {
	return &prompter{cmd: cmd, reader: bufio.NewReader(cmd.InOrStdin())}
}

func (p *prompter) line(label string) (string, error) {
	p.cmd.Print(label)
	input, err := p.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && input != "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.TrimSpace(label), ":"), err)
	}
	return strings.TrimSpace(input), nil
}

func (p *prompter) password(label string) (string, error) {
	if f, ok := p.cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.cmd.Print(label)
		secret, err := term.ReadPassword(int(f.Fd()))
		p.cmd.Println()
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(secret), nil
	}
	return p.line(label)
}

func (p *prompter) confirm(question string) (bool, error) {
	answer, err := p.line(question + " [y/N]: ")
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Long: `Sign in with a staff email and password. The session is stored so the
console and later commands start signed in.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withEnv(func(env *app.Env) error {
				return runLogin(cmd, env, email)
			})
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "staff email (prompted when empty)")
	return cmd
}

func runLogin(cmd *cobra.Command, env *app.Env, email string) error {
	p := newPrompter(cmd)
	var err error
	if strings.TrimSpace(email) == "" {
		if email, err = p.line("Email: "); err != nil {
			return err
		}
	}
	password, err := p.password("Password: ")
	if err != nil {
		return err
	}

	creds := api.Credentials{Email: strings.TrimSpace(email), Password: password}
	if err := feature.Validate(creds); err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd, env)
	defer cancel()
	user, err := env.Session.Login(ctx, creds)
	if err != nil {
		return fmt.Errorf("sign in: %s", api.Message(err, err.Error()))
	}
	cmd.Printf("Signed in as %s <%s>\n", user.Name, user.Email)
	return nil
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withEnv(func(env *app.Env) error {
				if !env.Store.Snapshot().Authenticated() {
					cmd.Println("Not signed in")
					return nil
				}
				env.Session.Logout()
				env.Session.Wait()
				cmd.Println("Signed out")
				return nil
			})
		},
	}
}

func newWhoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in staff member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withSession(func(env *app.Env) error {
				ctx, cancel := commandContext(cmd, env)
				defer cancel()
				user, err := load[api.User](ctx, env.Profile.Me)
				if err != nil {
					return fmt.Errorf("load profile: %w", err)
				}
				printUser(cmd.OutOrStdout(), user, env.Store.ExpiresAt())
				return nil
			})
		},
	}
}

func printUser(w io.Writer, user api.User, expires time.Time) {
	fmt.Fprintf(w, "Name:     %s\n", user.Name)
	fmt.Fprintf(w, "Email:    %s\n", user.Email)
	if user.Phone != "" {
		fmt.Fprintf(w, "Phone:    %s\n", user.Phone)
	}
	roles := make([]string, 0, len(user.Roles))
	for _, r := range user.Roles {
		roles = append(roles, string(r.Name))
	}
	if len(roles) > 0 {
		fmt.Fprintf(w, "Roles:    %s\n", strings.Join(roles, ", "))
	}
	if !expires.IsZero() {
		fmt.Fprintf(w, "Expires:  %s\n", expires.Local().Format("2006-01-02 15:04:05"))
	}
}

// commandContext bounds a single CLI request.
func commandContext(cmd *cobra.Command, env *app.Env) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := env.Config.RequestTimeout
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	// Paged loads and retries may take several requests.
	return context.WithTimeout(ctx, 4*timeout)
}
