// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple store interfaces
// through a single database connection:
//
//   - DocumentStore: document and chunk persistence, version chains
//   - VectorIndex: in-process cosine scan over stored chunk embeddings
//   - ConsentLog, RightsRequestStore, RetentionStore: governance tables
//   - RuleRepository: custom consistency rules
//   - JobStore: analysis jobs
//   - SchedulerStore: background task state and history
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory, named NNN_name.up.sql and applied in order.
//
// # Data Location
//
// By default, the database is stored at ~/.aegis/data/metadata.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
