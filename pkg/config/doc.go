/*
Package config builds the container environment for tenant sandboxes.

The environment is layered, lowest precedence first:

 1. platform defaults (operator-supplied)
 2. tenant plaintext env entries
 3. decrypted secret references
 4. decrypted channel credentials
 5. reserved system keys (BURROW_*), which always win

Secrets and channel tokens arrive as AES-GCM envelopes (pkg/security) inside
the tenant's stored config and are only opened here, at start time. A bad
envelope fails the build outright rather than starting a sandbox with
missing credentials.
*/
package config
