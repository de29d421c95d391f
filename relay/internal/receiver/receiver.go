package receiver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/findingrelay/findingrelay/relay/internal/auth"
	"github.com/findingrelay/findingrelay/relay/internal/config"
	"github.com/findingrelay/findingrelay/relay/internal/envelope"
	"github.com/findingrelay/findingrelay/relay/internal/metrics"
	"github.com/findingrelay/findingrelay/relay/internal/relay"
	"github.com/findingrelay/findingrelay/relay/internal/snsverify"
)

// maxBody bounds a delivery. SNS messages are at most 256 KiB; the JSON
// envelope and escaping add overhead.
const maxBody = 1 << 20

// SNS message types, as sent in the x-amz-sns-message-type header.
const (
	typeNotification = "Notification"
	typeSubscribe    = "SubscriptionConfirmation"
	typeUnsubscribe  = "UnsubscribeConfirmation"
)

// Confirmer confirms a pending SNS subscription.
type Confirmer interface {
	Confirm(ctx context.Context, topicARN, token string) (string, error)
}

// Verifier authenticates the signature of an SNS delivery.
type Verifier interface {
	Verify(ctx context.Context, m snsverify.Message) error
}

// state is the reloadable part of the receiver.
type state struct {
	relay *relay.Relay
	sns   config.SNSConfig
}

// Receiver handles SNS deliveries.
type Receiver struct {
	cur       atomic.Pointer[state]
	confirmer Confirmer
	verifier  Verifier
	mux       *http.ServeMux
}

// New creates a Receiver serving cfg.Server.Path through rl. confirmer may be
// nil when subscriptions are confirmed by hand. A nil verifier accepts
// unsigned deliveries.
func New(cfg *config.Config, rl *relay.Relay, m *metrics.Metrics, confirmer Confirmer, verifier Verifier) *Receiver {
	r := &Receiver{confirmer: confirmer, verifier: verifier, mux: http.NewServeMux()}
	r.Update(cfg, rl)

	a := cfg.Server.Auth
	secret := a.Key()
	if a.Mode == "basic" {
		secret = a.Password()
	}
	r.mux.Handle(cfg.Server.Path, auth.Middleware(a.Mode, a.Username, a.EffectiveHeader(), secret,
		http.HandlerFunc(r.deliver)))
	r.mux.HandleFunc("/healthz", r.health)
	if m != nil {
		r.mux.Handle("/metrics", m.Handler())
	}
	return r
}

// Update swaps in a new pipeline and SNS settings. In-flight requests finish
// on the previous ones.
func (r *Receiver) Update(cfg *config.Config, rl *relay.Relay) {
	r.cur.Store(&state{relay: rl, sns: cfg.SNS})
}

func (r *Receiver) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /healthz.
func (r *Receiver) health(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, healthResponse{Status: "ok"})
}

// deliver handles POST {path}.
func (r *Receiver) deliver(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	raw, err := io.ReadAll(io.LimitReader(req.Body, maxBody+1))
	if err != nil {
		jsonErr(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	if len(raw) > maxBody {
		jsonErr(w, http.StatusRequestEntityTooLarge, "message too large")
		return
	}

	var msg snsMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		slog.Warn("receiver: undecodable delivery", "err", err)
		jsonErr(w, http.StatusBadRequest, "invalid sns message: "+err.Error())
		return
	}
	if t := req.Header.Get("x-amz-sns-message-type"); t != "" {
		msg.Type = t
	}

	if r.verifier != nil {
		if err := r.verifier.Verify(req.Context(), msg.signed()); err != nil {
			if errors.Is(err, snsverify.ErrInvalid) {
				slog.Warn("receiver: rejected unsigned or forged delivery", "topic", msg.TopicArn, "err", err)
				jsonErr(w, http.StatusForbidden, "invalid signature")
				return
			}
			slog.Error("receiver: signature check failed", "err", err)
			jsonErr(w, http.StatusServiceUnavailable, "signature check unavailable")
			return
		}
	}

	st := r.cur.Load()
	if !st.sns.AllowsTopic(msg.TopicArn) {
		slog.Warn("receiver: delivery from unexpected topic", "topic", msg.TopicArn)
		jsonErr(w, http.StatusForbidden, "topic not allowed")
		return
	}

	switch msg.Type {
	case typeNotification:
		r.notification(req.Context(), w, st, &msg)
	case typeSubscribe:
		r.subscribe(req.Context(), w, st, &msg)
	case typeUnsubscribe:
		slog.Info("receiver: subscription removed", "topic", msg.TopicArn)
		jsonResp(w, http.StatusOK, deliveryResponse{Status: "unsubscribed"})
	default:
		jsonErr(w, http.StatusBadRequest, fmt.Sprintf("unknown sns message type %q", msg.Type))
	}
}

func (r *Receiver) notification(ctx context.Context, w http.ResponseWriter, st *state, msg *snsMessage) {
	res := st.relay.HandleEvent(ctx, envelope.Wrap(msg.entity()))

	code := http.StatusOK
	switch res.Status {
	case relay.Malformed:
		code = http.StatusBadRequest
	case relay.Retry:
		code = http.StatusServiceUnavailable
	}
	jsonResp(w, code, deliveryResponse{Status: res.Status.String(), Reason: res.Reason})
}

func (r *Receiver) subscribe(ctx context.Context, w http.ResponseWriter, st *state, msg *snsMessage) {
	if !st.sns.AutoConfirm || r.confirmer == nil {
		slog.Info("receiver: subscription pending manual confirmation",
			"topic", msg.TopicArn,
			"subscribe_url", msg.SubscribeURL,
		)
		jsonResp(w, http.StatusOK, deliveryResponse{Status: "pending"})
		return
	}

	sub, err := r.confirmer.Confirm(ctx, msg.TopicArn, msg.Token)
	if err != nil {
		slog.Error("receiver: subscription confirmation failed", "topic", msg.TopicArn, "err", err)
		jsonErr(w, http.StatusBadGateway, "confirmation failed")
		return
	}
	slog.Info("receiver: subscription confirmed", "topic", msg.TopicArn, "subscription", sub)
	jsonResp(w, http.StatusOK, deliveryResponse{Status: "confirmed"})
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// signed returns the fields covered by the SNS signature.
func (m *snsMessage) signed() snsverify.Message {
	return snsverify.Message{
		Type:             m.Type,
		MessageID:        m.MessageID,
		Token:            m.Token,
		TopicArn:         m.TopicArn,
		Subject:          m.Subject,
		Message:          m.Message,
		Timestamp:        m.Timestamp,
		SignatureVersion: m.SignatureVersion,
		Signature:        m.Signature,
		SigningCertURL:   m.SigningCertURL,
		SubscribeURL:     m.SubscribeURL,
	}
}

// entity converts an HTTP delivery into the record shape Lambda receives.
func (m *snsMessage) entity() events.SNSEntity {
	ts, _ := time.Parse(time.RFC3339, m.Timestamp)
	return events.SNSEntity{
		Signature:         m.Signature,
		MessageID:         m.MessageID,
		Type:              m.Type,
		TopicArn:          m.TopicArn,
		MessageAttributes: m.MessageAttributes,
		SignatureVersion:  m.SignatureVersion,
		Timestamp:         ts,
		SigningCertURL:    m.SigningCertURL,
		Message:           m.Message,
		UnsubscribeURL:    m.UnsubscribeURL,
		Subject:           m.Subject,
	}
}
