// Package access composes session validation and the quota ledger into one
// authorization decision for metered operations. Callers consult the gate
// before starting an investigation, then record consumption through the
// ledger afterwards.
package access
