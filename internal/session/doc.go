// Package session owns the logged-in user and their token.
//
// Store moves through three states: Unknown until Restore runs, then
// Authenticated or Anonymous. Token and user are always stored, cleared and
// published together; no reader can observe one without the other.
//
// Manager drives the transitions against the API:
//
//   - Login: auth endpoint, then the profile with the new token, then commit.
//     The token is staged for the transport only, so a failed profile call
//     leaves the session Anonymous.
//   - Logout: local state is cleared first; the server is told afterwards
//     using the captured token.
//   - Refresh: swaps the access token, keeping the user.
//
// Store.Invalidate is registered as the transport's 401 handler.
//
// Durable backends are FileStorage (TOML, 0600, atomic rename, fsnotify
// watch for other processes) and BoltStorage (one bolt transaction per
// write). MemoryStorage serves tests.
package session
