// Package ui provides the terminal console for the frontdesk application.
//
// # Architecture Overview
//
// The console is a Bubble Tea program. Model holds all UI state and renders
// it with Lipgloss; it never talks to the API directly. Reads go through
// query subscriptions obtained from the feature package, writes go through
// feature mutations, and sign-in state comes from the session store.
//
// # Package Structure
//
//   - model.go: Options, Model, New, Init, Update and Run
//   - commands.go: message types and the commands that bridge subscriptions,
//     session changes, logins and mutations into Bubble Tea messages
//   - input.go: key handling per screen
//   - view.go: rendering of the header, tabs, lists and footer
//   - form.go: text-input forms used for sign-in and inline prompts
//   - notice.go: transient notifications
//   - theme.go, keys.go: palettes and key bindings
//
// # Data Flow
//
// Each screen holds one subscription. A command blocks on the
// subscription's signal channel and turns it into a resultMsg; Update
// reads the latest Result and re-arms the wait. Switching screens closes the
// old subscription, which ends its wait, and opens the next one. The cache
// keeps the closed entry until it is collected, so switching back shows the
// previous rows immediately while they revalidate.
//
// Session transitions arrive the same way through Store.Changes. Signing out,
// whether by key, by another process or by a 401, drops the subscription and
// returns to the sign-in form with the last email filled in.
//
// # Screens
//
//   - Sign in: email and password; fields are validated before any request
//   - Tables: the floor, with optimistic status cycling and create/delete
//   - Categories: menu categories, with name search and delete
//   - Items: menu items, with optimistic availability toggling and delete
//
// # Key Bindings
//
//   - 1/2/3 or Tab: switch screens
//   - j/k, g/G: move the selection
//   - s or Enter: next table status
//   - a: toggle item availability
//   - n: new table
//   - d: delete (asks for y)
//   - /: search categories (Esc clears)
//   - r: reload, or retry after a failed load
//   - T: cycle theme
//   - L: sign out
//   - ?: help
//   - Ctrl+C: quit
package ui
