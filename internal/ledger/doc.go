// Package ledger persists processed-episode records in SQLite and exposes
// helpers for driving their lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, and status updates that mirror the public pipeline enum. Episode
// records capture the stable identity, resolved audio location, transcription
// task handle, and rendered note path so stages can coordinate without
// additional state.
//
// Unlike a transient job queue, the ledger is a permanent archive: it is the
// at-most-once guarantee. A record present here, in any state, means the
// episode has been claimed and will never be picked up again. Schema changes
// must therefore be additive; old databases are migrated forward, never
// cleared.
package ledger
