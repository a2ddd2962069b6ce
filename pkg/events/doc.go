/*
Package events provides an in-memory broker for instance lifecycle events.

The orchestrator publishes an event for every meaningful transition
(provisioned, started, stopped, destroyed, crash-detected, self-healed)
and for backup sync outcomes. Subscribers receive events over buffered
channels; a slow subscriber drops events rather than blocking the
publisher, so the broker can never stall a lifecycle operation.
*/
package events
