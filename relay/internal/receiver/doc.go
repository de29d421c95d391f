// Package receiver implements the HTTP endpoint an SNS HTTP/S subscription
// delivers to, plus the operational routes served alongside it.
//
// New(...) returns an http.Handler that serves:
//
//	POST {path}    SNS deliveries (Notification, SubscriptionConfirmation,
//	                UnsubscribeConfirmation); authenticated by package auth
//	GET /healthz   liveness
//	GET /metrics   Prometheus exposition
//
// Every delivery's SNS signature is checked by the Verifier before it is
// dispatched; unsigned or forged messages get 403.
//
// Notifications are converted to a one-record events.SNSEvent and handed to
// the relay pipeline. The HTTP status tells SNS whether to redeliver:
// 503 for retryable failures, 400 for malformed input, 200 otherwise.
//
// The pipeline and SNS settings live behind an atomic pointer so that a
// config reload swaps them without locking the request path. Auth and
// signature verification are fixed at construction.
package receiver
