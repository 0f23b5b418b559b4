// Package store provides persistent storage for vault-gateway using SQLite.
//
// # Data Model
//
// The Investigator aggregate owns everything: account identity (badge ID,
// password hash, role) and the append-only Investigation list. No other
// component writes these rows directly; all mutation goes through the auth
// layer (account creation) or the quota ledger (appends).
//
// # Quota Atomicity
//
// AppendInvestigation executes the period-count check and the insert as one
// SQL statement:
//
//	INSERT ... SELECT ... WHERE (SELECT COUNT(*) ...) < limit
//
// so concurrent appends for the same investigator serialize at the database
// and can never jointly exceed the monthly limit. Callers detect a lost race
// via ErrQuotaExceeded.
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// Use NewSQLiteStore(":memory:") for tests that want a throwaway database.
//
// # Error Handling
//
// Common errors:
//
//   - ErrInvestigatorNotFound: Requested investigator does not exist
//   - ErrBadgeExists: Badge ID already registered
//   - ErrQuotaExceeded: Conditional append lost to the period limit
//
// All methods accept context.Context for cancellation support.
package store
