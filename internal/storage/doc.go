// Package storage provides SQLite-backed run history.
//
// Every extraction run is stored with its per-venue reports and the unique
// candidates it produced, so operators can review past runs and the CLI can
// report only candidates that were not present in the previous run. The database
// lives at history.db in the data directory (default ~/.local/share/sf-events/).
package storage
