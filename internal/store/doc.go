// Package store persists the person registry, face embeddings, and the
// attendance ledger in SQLite.
//
// The Store manages the database connection, schema initialization, and the
// ledger's cooldown-gated write path. RecordPresence is the single mutation
// surface for attendance: it holds a per-person mutex across the
// check-then-append so concurrent confirmations cannot double-log, and a
// UNIQUE constraint backstops the invariant at the schema level. Reads
// (AttendanceForPerson, AttendanceForDay) are pure and timestamp-ordered.
//
// Person deletion cascades to embeddings and attendance and fires the change
// listeners so any cached recognition index is invalidated.
//
// Treat this package as the single source of truth for ledger semantics; when
// you add columns, update schema.sql and bump schemaVersion.
package store
