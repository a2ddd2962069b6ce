/*
Package sandbox implements the reversible tenant-to-sandbox name codec.

Every tenant owns exactly one sandbox container, and the container's name
encodes the tenant id ("sbx-" + base32 of the id, lowercase, unpadded). The
encoding is deterministic, URL-safe, and fits the 63-character limit shared
by container runtimes and DNS labels.

Reversibility is the point: when a container dies unexpectedly, the crash
recovery hook recovers the owning tenant from the container's own name, so
recovery keeps working even when the registry is unreachable.
*/
package sandbox
