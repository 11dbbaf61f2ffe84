// Package history keeps a local SQLite journal of kit invocations.
//
// Each row records the kit subcommand, its full argv, exit code, start time
// and duration. The store satisfies kit.Recorder so a kit.Client can write
// to it directly.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - a single open connection; SQLite allows one writer at a time
//
// The schema is embedded and versioned with PRAGMA user_version.
package history
