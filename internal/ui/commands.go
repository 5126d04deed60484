package ui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sazonarte/frontdesk/internal/api"
	"github.com/sazonarte/frontdesk/internal/feature"
	"github.com/sazonarte/frontdesk/internal/query"
	"github.com/sazonarte/frontdesk/internal/session"
)

// Message types for Bubble Tea.
type (
	tickMsg time.Time

	// resultMsg reports that sub's entry changed.
	resultMsg struct {
		sub *query.Subscription
	}

	sessionMsg struct{}

	loginMsg struct {
		user api.User
		err  error
	}

	mutationMsg struct {
		done     string
		fallback string
		err      error
	}
)

// tickCmd returns a command that sends a tick after the given duration.
func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitResult blocks until sub is signalled. A closed subscription yields no
// message, which ends the wait loop for it.
func waitResult(ctx context.Context, sub *query.Subscription) tea.Cmd {
	return func() tea.Msg {
		select {
		case _, ok := <-sub.C():
			if !ok {
				return nil
			}
			return resultMsg{sub: sub}
		case <-ctx.Done():
			return nil
		}
	}
}

func waitSession(ctx context.Context, changes <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-changes:
			return sessionMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

func loginCmd(ctx context.Context, m *session.Manager, creds api.Credentials) tea.Cmd {
	return func() tea.Msg {
		user, err := m.Login(ctx, creds)
		return loginMsg{user: user, err: err}
	}
}

// mutateCmd runs a write and reports done or the failure. Reads need no
// follow-up: the affected subscriptions are signalled by the cache.
func mutateCmd(ctx context.Context, done, fallback string, run func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return mutationMsg{done: done, fallback: fallback, err: run(ctx)}
	}
}

// errorText is the user-facing text for err. Validation failures list their
// fields; API failures use the server's message when it sent one.
func errorText(err error, fallback string) string {
	if errors.Is(err, feature.ErrInvalidInput) {
		return err.Error()
	}
	if errors.Is(err, context.Canceled) {
		return "Cancelled"
	}
	return api.Message(err, fallback)
}
