// Package slack delivers rendered messages to an incoming-webhook endpoint.
//
// Client.Post performs exactly one synchronous POST per call and classifies
// the response:
//
//	status < 400   → Delivered
//	400 ≤ status < 500 → Rejected (permanent; retrying the same body cannot help)
//	status ≥ 500 or transport error → Retry
//
// There is no retry loop and no client-side timeout: the request is bound to
// the caller's context, whose deadline belongs to the invoking host.
package slack
