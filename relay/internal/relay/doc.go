// Package relay wires the decode, filter, format and publish stages into a
// single per-invocation pipeline and reports its outcome as a Result.
//
// A Relay is built once from an immutable config.Config and is safe for
// concurrent use: it holds no mutable state beyond its metrics.
//
// Result statuses and what the invoking host should do with them:
//
//	Delivered  done
//	Dropped    done; the severity filter skipped the finding
//	Rejected   done; the webhook refused the request (4xx), logged only
//	Malformed  fail the invocation; the input can never succeed
//	Retry      fail the invocation so the host re-delivers it
package relay
