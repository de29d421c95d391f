package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// maxBodyLog caps how much of an error response is kept for diagnostics.
const maxBodyLog = 4 << 10

// Message is the JSON body accepted by the webhook.
type Message struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

// Outcome classifies a delivery attempt.
type Outcome int

const (
	// Delivered means the webhook accepted the message.
	Delivered Outcome = iota
	// Rejected means the webhook refused the request with a 4xx status.
	Rejected
	// Retry means the webhook failed with a 5xx status or was unreachable.
	Retry
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case Rejected:
		return "rejected"
	case Retry:
		return "retry"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result describes one delivery attempt.
type Result struct {
	Outcome    Outcome
	StatusCode int    // zero when no response was received
	Status     string // e.g. "503 Service Unavailable"
	Body       string // response body, truncated
	Err        error  // transport or encoding error, if any
}

// Client posts messages to a single webhook URL.
type Client struct {
	url    string
	client *http.Client
}

// New returns a Client for url using a default http.Client.
func New(url string) *Client {
	return NewWithClient(url, &http.Client{})
}

// NewWithClient returns a Client for url that sends through hc.
func NewWithClient(url string, hc *http.Client) *Client {
	return &Client{url: url, client: hc}
}

// Post serialises msg and sends it to the webhook.
func (c *Client) Post(ctx context.Context, msg Message) Result {
	body, err := json.Marshal(msg)
	if err != nil {
		return Result{Outcome: Rejected, Err: fmt.Errorf("encode message: %w", err)}
	}

	// bytes.Reader lets net/http derive an exact Content-Length.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Result{Outcome: Rejected, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		slog.Error("slack: webhook unreachable", "err", err)
		return Result{Outcome: Retry, Err: fmt.Errorf("http post: %w", err)}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyLog))
	res := Result{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(respBody),
	}

	switch {
	case resp.StatusCode < 400:
		res.Outcome = Delivered
		slog.Info("slack: message posted", "status", resp.StatusCode)
	case resp.StatusCode < 500:
		res.Outcome = Rejected
		slog.Error("slack: webhook rejected message",
			"status", resp.StatusCode,
			"status_text", resp.Status,
			"body", res.Body,
		)
	default:
		res.Outcome = Retry
		res.Err = fmt.Errorf("server error when processing message: %d - %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		slog.Warn("slack: webhook server error",
			"status", resp.StatusCode,
			"status_text", resp.Status,
		)
	}
	return res
}
