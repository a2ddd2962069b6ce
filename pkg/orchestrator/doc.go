// Package orchestrator implements the per-tenant instance lifecycle.
//
// Every tenant is served by exactly one Instance actor per process. The
// actor owns the tenant's persisted state and serializes all work on a
// single mutex:
//
//	API ops ──────────┐
//	crash hooks ──────┼──> mutex ──> load gate ──> state transition ──> persist
//	sync ticks ───────┘
//
// State is lazy-loaded on first use and cached for the actor's lifetime.
// The boltdb record is the authority for a tenant's operational status;
// the relational registry is authoritative only for existence (the
// provision and destroy races) and otherwise carries a best-effort status
// mirror used for listing.
//
// A running instance is watched by a self-rescheduling sync tick that
// first health-checks the sandbox and then, under a persisted lock,
// backs its data up. Sustained health failure self-heals the instance to
// stopped; backup failure only backs the tick off.
package orchestrator
