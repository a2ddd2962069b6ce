/*
Package metrics exposes Prometheus metrics for the instance fleet.

Collectors cover lifecycle operations, sync tick outcomes, self-heals,
crash notifications, registry mirror writes, and retry pressure. Register
them once at startup with Register and serve them with Handler on
/metrics.
*/
package metrics
