// Package config loads the console configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/frontdesk/config.toml (default)
//  3. If the config file doesn't exist, fall back to built-in defaults
//  4. If the file exists but fields are missing/empty, use defaults
//  5. FRONTDESK_API_URL and FRONTDESK_TIMEOUT override whatever the file says
//
// # Default Values
//
//   - API base URL: http://localhost:8080 (the transport appends /api/v1)
//   - Request timeout: 10s
//   - Cache: stale after 1m, collected 5m after the last viewer leaves,
//     1 retry starting at 1s and doubling up to 30s
//   - Client rate limit: 10 requests/s, burst 20
//   - Floor refresh: every 15s while signed in
//   - Session: file backend at ~/.local/share/frontdesk/session.toml
//
// # TOML Format
//
//	api_base_url = "https://api.example.com"
//	request_timeout = "10s"
//	stale_after = "1m"
//	gc_after = "5m"
//	retry = 1
//	retry_delay = "1s"
//	max_retry_delay = "30s"
//	requests_per_second = 10
//	burst = 20
//	refresh_interval = "15s"
//
//	[session]
//	backend = "file"   # or "bolt"
//	path = "~/.local/share/frontdesk/session.toml"
//
// Durations accept Go syntax ("1m30s") or bare milliseconds ("1500").
// Choosing the bolt backend without a path moves the default to session.db.
//
// # Error Handling
//
// Load returns errors for:
//   - Path expansion failures (e.g., cannot determine home directory)
//   - File read errors (except os.ErrNotExist, which triggers defaults)
//   - TOML parsing errors ("parse config: ...")
//   - Unparseable or negative durations, negative retry counts
//   - Unknown session backends
//
// Missing config files are NOT an error. The console works against a local
// API without any configuration.
package config
