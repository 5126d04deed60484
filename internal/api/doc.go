// Package api provides the HTTP transport and typed resource clients for the
// restaurant admin REST API.
//
// # Overview
//
// Client is the single transport. It owns the base URL (always suffixed with
// /api/v1), the request timeout, the bearer token lookup and the 401
// interceptor. Resource clients hang off it:
//
//   - Auth(): POST /auth/login, /auth/logout, /auth/refresh
//   - Profile(): GET /profile/me
//   - Tables(): list, get, create, patch, soft delete, PATCH /tables/:id/status
//   - Menu(): categories (incl. search and bulk delete) and items
//
// # Client Usage
//
//	client, err := api.NewClient("http://localhost:8080",
//		api.WithTimeout(10*time.Second),
//		api.WithTokenSource(store),
//		api.WithUnauthorizedHandler(store.Invalidate),
//	)
//	if err != nil {
//		return err
//	}
//	page, err := client.Tables().List(ctx, api.PageParams{Page: 1, Limit: api.DefaultPageLimit})
//
// # Authentication
//
// Every request asks the configured oauth2.TokenSource for a token. When the
// source errors or yields an empty token the request goes out anonymous. A
// request may also carry an explicit token; Logout uses this because the local
// session is cleared before the server is told.
//
// Any 401 response runs the unauthorized handler before the call returns, so
// by the time the caller sees the error the session is already gone.
//
// # Responses
//
// Single-resource endpoints wrap their payload as {success, data, message};
// getData unwraps it. Plain list endpoints return {data, pagination} directly
// and decode into Page[T].
//
// # Error Handling
//
// Failures come back as *Error tagged with a Kind:
//
//   - KindTransport: no response (connection refused, timeout)
//   - KindUnauthenticated: 401
//   - KindForbidden: 403
//   - KindClient: other 4xx, usually validation
//   - KindServer: 5xx
//   - KindDecode: a 2xx body that could not be decoded
//
// Message carries the server's "message" field when present. Message(err,
// fallback) is what views should show. Retryable() is true only for transport
// and server failures, which the query cache uses to decide whether to back off
// and try again.
//
// Example error strings:
//   - "api GET /tables failed: unable to reach the server: dial tcp: connection refused"
//   - "api PATCH /tables/7/status returned status 500"
//   - "api POST /auth/login returned status 401: invalid credentials"
//
// # Thread Safety
//
// Client is safe for concurrent use once built. Options are applied only in
// NewClient.
package api
