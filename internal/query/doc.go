// Package query is the console's cache of server state.
//
// A Cache holds one entry per Key. Consumers Subscribe with a Fetcher and
// read a Result; the cache decides when the network is touched:
//
//   - missing, failed or stale entries fetch on subscribe
//   - fresh entries (younger than StaleAfter) are served as-is
//   - at most one fetch per key is outstanding; later subscribers share it
//   - a failed refresh keeps the last good data next to the error
//
// # Generations
//
// Every fetch is tagged with the entry's generation. Invalidate, Cancel and
// optimistic mutations bump it, so a slow response that lands after a newer
// request was issued is dropped instead of overwriting fresher data.
//
// # Retry
//
// Retryable failures (transport errors and 5xx, see api.Error.Retryable) are
// repeated Retry times with delays of RetryDelay * 2^attempt capped at
// MaxRetryDelay. Everything else fails on the first attempt.
//
// # Collection
//
// When the last subscriber closes, the entry is kept for GCAfter and then
// dropped unless someone subscribed in the meantime.
//
// # Mutations
//
// Mutate applies optimistic values, runs the server call and then either
// invalidates the given prefixes or restores the exact prior state. While a
// mutation holds a key no fetch starts or settles for it, so readers see the
// optimistic value and nothing else until the mutation settles.
package query
