// Package calendar builds idempotent event-creation requests and talks to
// the remote calendar service.
package calendar

import (
	"context"
	"math/rand"
	"time"
)

// requestIDLen matches Google's conference request id expectations; at this
// length a collision within a single in-flight request is negligible.
const requestIDLen = 32

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Request is one event-creation attempt. RequestID is the deduplication key:
// if the transport retries the call, the service must treat repeated
// submissions with the same id as one logical creation. It is generated
// fresh per request and never persisted or reused.
type Request struct {
	Summary   string
	Start     time.Time
	End       time.Time
	RequestID string
}

// NewRequest builds a creation request with a fresh idempotency token.
func NewRequest(summary string, start, end time.Time) Request {
	return Request{
		Summary:   summary,
		Start:     start,
		End:       end,
		RequestID: randomID(requestIDLen),
	}
}

func randomID(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphanumeric[rand.Intn(len(alphanumeric))]
	}
	return string(b)
}

// InsertResult is what the orchestrator needs from a creation call: the
// response status and the first conference entry point, empty when the
// service produced none.
type InsertResult struct {
	HTTPStatus int
	EventID    string
	MeetLink   string
}

// Inserter is the remote calendar collaborator. Implementations hold no
// per-request state and are safe for concurrent use.
type Inserter interface {
	InsertEvent(ctx context.Context, req Request) (InsertResult, error)
}
