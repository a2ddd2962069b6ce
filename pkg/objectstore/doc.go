/*
Package objectstore provides the backup target for sandbox data.

The ObjectStore interface covers the three operations the lifecycle needs:
best-effort Mount before a sandbox starts, Sync from the backup loop, and
Purge on destroy-with-data. The local driver keeps a live directory per
sandbox (bind-mounted into the container) and copies it into a backup
directory on each sync; remote drivers can implement the same contract
against bucket storage.
*/
package objectstore
