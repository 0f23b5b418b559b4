// Package quota enforces the rolling monthly investigation allowance.
//
// The ledger reads the investigator's append-only event list straight from
// the store on every status call. This trades a little performance for a
// hard guarantee: an "allowed" decision can never be stale. Any future
// caching here would need explicit invalidation tied to Record.
//
// The check-then-append sequence in Record is not itself the concurrency
// guard; the store's conditional append is. Record's pre-check exists so an
// exhausted quota rejects cheaply and idempotently without an insert attempt.
package quota
