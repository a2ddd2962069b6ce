/*
Package log provides structured logging for Burrow using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper functions
for common logging patterns. All logs include timestamps and support filtering
by severity for production debugging.

# Usage

Initialize once at startup:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
	})

Then derive child loggers per component or tenant:

	logger := log.WithComponent("orchestrator")
	logger.Info().Str("tenant_id", id).Msg("instance provisioned")

Tenant-scoped helpers (WithTenantID, WithSandboxID) attach the identifiers
every lifecycle log line should carry so a single tenant's history can be
filtered out of the aggregate stream.
*/
package log
