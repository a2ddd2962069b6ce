/*
Package scheduler provides the tick timer abstraction for the sync loop.

The orchestrator never touches time.AfterFunc directly: it owns a Tick
handle per tenant with exactly two operations, Schedule and Cancel, and at
most one pending tick per handle. The Scheduler that mints handles is
injected, so tests swap in ManualScheduler and drive ticks synchronously
while asserting on the recorded delays (backoff, normal interval, first
tick after start).
*/
package scheduler
