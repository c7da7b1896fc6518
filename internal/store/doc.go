// Package store provides the SQL database used by the storefront's
// identity and profile services.
//
// It holds the collaborators' data (accounts, profile records, password
// reset requests), never the session state itself, which lives in memory
// in package state.
//
// # Drivers
//
//   - sqlite3 (mattn/go-sqlite3): default, single writer, WAL mode
//   - postgres (lib/pq): shared deployments
//
// The schema in schema.sql is portable between both. Statements use $N
// placeholders in order of appearance, which both drivers accept.
//
// # Database Configuration (SQLite)
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
