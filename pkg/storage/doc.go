/*
Package storage provides the durable per-tenant instance store.

Burrow persists one JSON record per tenant in a BoltDB bucket. The record is
the authoritative copy of the instance's operational state; the SQL registry
only mirrors it for listing.

# Architecture

	┌────────────────────────────────────────────┐
	│                Store (interface)           │
	│  Load / Save / Delete / List / Close       │
	└──────────────────┬─────────────────────────┘
	                   │
	                   ▼
	┌────────────────────────────────────────────┐
	│                BoltStore                   │
	│  bucket "instances":                       │
	│    key   = tenant id                       │
	│    value = JSON-encoded types.Instance     │
	└────────────────────────────────────────────┘

# Degraded Loads

Load never fails on bad data. A record that does not unmarshal, carries an
unknown status, or is missing its sandbox id is logged and treated as absent,
so one corrupt row can only cost that tenant its cached state, not wedge the
actor. New optional fields must therefore always decode to safe defaults.
*/
package storage
