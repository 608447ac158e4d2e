// Package archive implements the optional batch writer that persists
// reconciled trades to PostgreSQL.
//
// Writes are append-only (never update, only insert); replayed history and
// reconnect re-deliveries dedupe on the transaction hash.
package archive
