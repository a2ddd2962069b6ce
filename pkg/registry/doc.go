/*
Package registry provides the relational mirror of the instance fleet.

The registry holds two different kinds of truth and the distinction matters:

  - Existence: the partial unique index (one live row per tenant) is the
    authority for provisioning and destruction. InsertProvisioned and
    MarkDestroyed failures are hard failures.
  - Operational status: a best-effort mirror of the orchestrator's state,
    kept only for cross-tenant listing and search. Mirror writes are
    dispatched fire-and-forget and must never be read back to make
    lifecycle decisions.

Two implementations are provided: PostgresRegistry (lib/pq) for production
and MemoryRegistry for tests and single-node development.
*/
package registry
