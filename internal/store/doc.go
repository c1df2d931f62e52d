// Package store persists pipeline items in SQLite and enforces their
// lifecycle.
//
// The Store owns episodes, newsletters, transcripts, summaries, and digest
// entries. Status transitions are validated inside the update operations
// against the legal transition table, so no caller can move an item along an
// illegal edge. Upserts merge descriptive fields only; lifecycle fields
// (status, error_reason, created_at) survive re-discovery untouched.
//
// Treat this package as the single source of truth for lifecycle semantics;
// when you add statuses or columns, update schema.sql and bump schemaVersion.
package store
