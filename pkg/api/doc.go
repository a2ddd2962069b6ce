// Package api exposes the instance lifecycle over HTTP. The surface is
// thin: routes decode requests, resolve the tenant's actor and run one
// orchestrator operation through the retry harness, then map the error
// taxonomy onto status codes (409 conflict, 404 missing, 429 overload,
// 503 transient).
package api
