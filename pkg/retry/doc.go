/*
Package retry wraps lifecycle operations with bounded, jittered retries.

The harness retries only errors marked infrastructure-transient
(types.TransientError). Application errors, overload signals, and anything
unmarked surface to the caller unchanged on the first attempt; retrying
those would either mask bugs or amplify load shedding.

Every attempt re-acquires its handle through the caller's acquire function,
because a handle that failed once may be broken. Backoff is
min(max, base * 2^attempt * rand[0,1)); full jitter keeps thousands of
tenants that fail together from retrying together.
*/
package retry
