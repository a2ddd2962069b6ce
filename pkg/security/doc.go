/*
Package security provides the AES-256-GCM envelope crypto for tenant secrets.

Tenant configs never store plaintext credentials: secret values and channel
tokens are sealed into envelopes (random nonce prepended to the GCM
ciphertext) and only opened when the container environment is built.

Keys are 32 bytes; they can be supplied directly, derived from a password,
or derived from the platform deployment id so every component shares the
same key without a distribution channel.
*/
package security
