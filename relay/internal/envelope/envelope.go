// Package envelope decodes the compliance finding embedded in an SNS
// notification.
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"github.com/findingrelay/findingrelay/pkg/types"
)

// ErrMalformed wraps every decoding failure. Retrying a malformed envelope
// cannot succeed.
var ErrMalformed = errors.New("malformed finding")

// Decode returns the finding carried by the first record of ev.
// Envelopes are expected to hold exactly one record; extras are ignored.
func Decode(ev events.SNSEvent) (*types.Finding, error) {
	if len(ev.Records) == 0 {
		return nil, fmt.Errorf("%w: envelope has no records", ErrMalformed)
	}
	if n := len(ev.Records); n > 1 {
		slog.Warn("envelope: extra records ignored",
			"records", n,
			"message_id", ev.Records[0].SNS.MessageID,
		)
	}
	return DecodeMessage(ev.Records[0].SNS.Message)
}

// DecodeMessage parses a raw message body into a validated finding.
func DecodeMessage(msg string) (*types.Finding, error) {
	if msg == "" {
		return nil, fmt.Errorf("%w: empty message body", ErrMalformed)
	}

	var f types.Finding
	if err := json.Unmarshal([]byte(msg), &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &f, nil
}

// Wrap builds a single-record envelope around entity, shaped like the event
// SNS hands to a Lambda subscriber.
func Wrap(entity events.SNSEntity) events.SNSEvent {
	return events.SNSEvent{
		Records: []events.SNSEventRecord{{
			EventVersion: "1.0",
			EventSource:  "aws:sns",
			SNS:          entity,
		}},
	}
}
