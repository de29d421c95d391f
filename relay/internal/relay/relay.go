package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"

	"github.com/findingrelay/findingrelay/pkg/types"
	"github.com/findingrelay/findingrelay/relay/internal/config"
	"github.com/findingrelay/findingrelay/relay/internal/envelope"
	"github.com/findingrelay/findingrelay/relay/internal/filter"
	"github.com/findingrelay/findingrelay/relay/internal/format"
	"github.com/findingrelay/findingrelay/relay/internal/metrics"
	"github.com/findingrelay/findingrelay/relay/internal/slack"
)

// Status is the outcome of one invocation.
type Status int

const (
	// Delivered means the webhook accepted the message.
	Delivered Status = iota
	// Dropped means the severity filter skipped the finding.
	Dropped
	// Rejected means the webhook refused the message with a 4xx status.
	Rejected
	// Malformed means the event could not be decoded into a finding.
	Malformed
	// Retry means delivery failed in a way a redelivery may fix.
	Retry
)

func (s Status) String() string {
	switch s {
	case Delivered:
		return "delivered"
	case Dropped:
		return "dropped"
	case Rejected:
		return "rejected"
	case Malformed:
		return "malformed"
	case Retry:
		return "retry"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result reports what happened to one finding.
type Result struct {
	Status Status

	// Reason is a human-readable explanation, e.g. the severity filter
	// message for Dropped.
	Reason string

	// StatusCode is the webhook response status, when a POST was made.
	StatusCode int

	err error
}

// Err returns the error the host should signal, or nil when the invocation
// completed. Only Malformed and Retry carry an error.
func (r Result) Err() error {
	switch r.Status {
	case Malformed, Retry:
		if r.err != nil {
			return r.err
		}
		return errors.New(r.Reason)
	default:
		return nil
	}
}

// Publisher delivers a rendered message. *slack.Client satisfies it.
type Publisher interface {
	Post(ctx context.Context, msg slack.Message) slack.Result
}

// Relay is the configured pipeline.
type Relay struct {
	channel   string
	filter    *filter.Filter
	formatter *format.Formatter
	publisher Publisher
	metrics   *metrics.Metrics
}

// New builds a Relay from cfg. A nil m gets a fresh private registry.
func New(cfg *config.Config, pub Publisher, m *metrics.Metrics) *Relay {
	if m == nil {
		m = metrics.New()
	}
	return &Relay{
		channel:   cfg.Slack.Channel,
		filter:    filter.New(cfg.Slack.SeverityFilter),
		formatter: format.New(cfg.Links.ConsoleURL, cfg.Links.GSLURL),
		publisher: pub,
		metrics:   m,
	}
}

// HandleEvent decodes the finding in ev and processes it.
func (r *Relay) HandleEvent(ctx context.Context, ev events.SNSEvent) Result {
	log := slog.With("invocation", invocationID(ctx, ev))

	f, err := envelope.Decode(ev)
	if err != nil {
		log.Error("relay: finding rejected as malformed", "err", err)
		res := Result{Status: Malformed, Reason: err.Error(), err: err}
		r.metrics.Finding(res.Status.String())
		return res
	}
	return r.process(ctx, log, f)
}

// Process runs an already decoded finding through filter, format and publish.
func (r *Relay) Process(ctx context.Context, f *types.Finding) Result {
	return r.process(ctx, slog.Default(), f)
}

func (r *Relay) process(ctx context.Context, log *slog.Logger, f *types.Finding) Result {
	res := r.run(ctx, log, f)
	r.metrics.Finding(res.Status.String())
	return res
}

func (r *Relay) run(ctx context.Context, log *slog.Logger, f *types.Finding) Result {
	if !r.filter.Allow(f.Rule.Severity) {
		log.Info("relay: finding dropped by severity filter",
			"severity", f.Rule.Severity,
			"allowed", r.filter.String(),
			"rule", f.Rule.Name,
		)
		return Result{Status: Dropped, Reason: r.filter.Reason()}
	}

	log.Info("relay: finding accepted",
		"rule", f.Rule.Name,
		"rule_id", f.Rule.RuleID,
		"severity", f.Rule.Severity,
		"status", f.Status,
		"entity_type", f.Entity.Type,
		"entity_id", f.Entity.ID,
		"account", f.Account.ID,
		"vendor", f.Account.Vendor,
		"finding_key", f.FindingKey,
	)

	msg := slack.Message{Channel: r.channel, Text: r.formatter.Text(f)}

	start := time.Now()
	pr := r.publisher.Post(ctx, msg)
	r.metrics.Webhook(pr.Outcome.String(), time.Since(start))

	switch pr.Outcome {
	case slack.Delivered:
		return Result{Status: Delivered, Reason: "Message posted successfully", StatusCode: pr.StatusCode}
	case slack.Rejected:
		reason := fmt.Sprintf("Error posting message to Slack API: %d - %s", pr.StatusCode, http.StatusText(pr.StatusCode))
		if pr.Err != nil {
			reason = fmt.Sprintf("Error posting message to Slack API: %v", pr.Err)
		}
		log.Error("relay: delivery rejected, not retrying", "reason", reason)
		return Result{Status: Rejected, Reason: reason, StatusCode: pr.StatusCode}
	default:
		err := pr.Err
		if err == nil {
			err = fmt.Errorf("server error when processing message: %d - %s", pr.StatusCode, http.StatusText(pr.StatusCode))
		}
		log.Warn("relay: delivery failed, requesting retry", "err", err)
		return Result{Status: Retry, Reason: err.Error(), StatusCode: pr.StatusCode, err: err}
	}
}

// HandleLambda adapts HandleEvent to the Lambda handler signature. The
// returned string is the human-readable outcome; a non-nil error fails the
// invocation so the runtime retries it.
func (r *Relay) HandleLambda(ctx context.Context, ev events.SNSEvent) (string, error) {
	res := r.HandleEvent(ctx, ev)
	return res.Reason, res.Err()
}

// invocationID picks a correlation ID for log lines: the Lambda request ID,
// then the SNS message ID, then a random UUID.
func invocationID(ctx context.Context, ev events.SNSEvent) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	if len(ev.Records) > 0 && ev.Records[0].SNS.MessageID != "" {
		return ev.Records[0].SNS.MessageID
	}
	return uuid.NewString()
}
