// Package recovery bridges container runtime death events to the per-tenant
// actors. Sandbox names encode their tenant, so the hook recovers ownership
// from the event itself and needs no lookup table to survive control plane
// restarts.
package recovery
