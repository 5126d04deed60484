// Package app provides the orchestration layer for the frontdesk application.
//
// # Overview
//
// This package wires configuration, session storage, the API client, the
// query cache and the feature services into one object graph (Env). The
// console and every CLI command start from Open, so they share the same
// restored session and the same transport settings.
//
// # Wiring Order
//
//  1. Load ~/.config/frontdesk/config.toml (defaults when missing) and prefs
//  2. Open the session storage backend (TOML file or bolt database)
//  3. Restore the saved session; invalid or expired records are discarded
//  4. Build the API client: timeout, bearer tokens from the session store,
//     sign-out on 401, client-side rate limiting
//  5. Build the query cache from the configured staleness, retry and GC
//  6. Create the session manager and the tables/categories/items features
//
// # Background Work
//
// Run starts the console and, in the same errgroup:
//
//   - Poller: every refresh_interval, while signed in, invalidates the
//     tables list so the floor view stays current, and renews the access
//     token shortly before it expires
//   - Session watcher: with the file backend, reloads the session when
//     another frontdesk process signs in or out
//   - Sign-out cleanup: clears the cache when the session leaves
//     Authenticated
//
// All of them stop when the console exits or the context is cancelled.
//
// # Error Handling
//
// Fatal errors (returned from Open and Run):
//   - Invalid configuration
//   - Session storage that cannot be opened
//   - API base URL that cannot be parsed
//
// Recoverable errors (logged with glog, work continues):
//   - Failed token refresh during polling
//   - Session watch failures
//
// # Usage Example
//
//	env, err := app.Open(app.Options{})
//	if err != nil {
//		return err
//	}
//	defer env.Close()
//
//	sub := env.Tables.List()
//	defer sub.Close()
package app
