// Package snsverify authenticates SNS HTTP/S deliveries by checking their
// signature against the signing certificate SNS publishes.
//
// Verify rebuilds the canonical string for the message type, fetches the
// certificate named by SigningCertURL (only from an SNS host) and checks the
// RSA signature: SHA1 for SignatureVersion 1, SHA256 for 2. Certificates are
// cached per URL.
package snsverify

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha1" //nolint:gosec // SignatureVersion 1 is SHA1WithRSA
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"
)

// ErrInvalid is wrapped by every verification failure.
var ErrInvalid = errors.New("invalid sns signature")

// maxCert bounds a downloaded signing certificate.
const maxCert = 64 << 10

var snsHost = regexp.MustCompile(`^sns\.[a-z0-9-]+\.amazonaws\.com(\.cn)?$`)

// Message holds the signed fields of an SNS delivery.
type Message struct {
	Type             string
	MessageID        string
	Token            string
	TopicArn         string
	Subject          string
	Message          string
	Timestamp        string
	SignatureVersion string
	Signature        string
	SigningCertURL   string
	SubscribeURL     string
}

// StringToSign returns the canonical string SNS signs for m.
func (m Message) StringToSign() (string, error) {
	var b strings.Builder
	add := func(k, v string) {
		b.WriteString(k)
		b.WriteByte('\n')
		b.WriteString(v)
		b.WriteByte('\n')
	}
	switch m.Type {
	case "Notification":
		add("Message", m.Message)
		add("MessageId", m.MessageID)
		if m.Subject != "" {
			add("Subject", m.Subject)
		}
		add("Timestamp", m.Timestamp)
		add("TopicArn", m.TopicArn)
		add("Type", m.Type)
	case "SubscriptionConfirmation", "UnsubscribeConfirmation":
		add("Message", m.Message)
		add("MessageId", m.MessageID)
		add("SubscribeURL", m.SubscribeURL)
		add("Timestamp", m.Timestamp)
		add("Token", m.Token)
		add("TopicArn", m.TopicArn)
		add("Type", m.Type)
	default:
		return "", fmt.Errorf("%w: unsigned message type %q", ErrInvalid, m.Type)
	}
	return b.String(), nil
}

// Verifier checks SNS signatures.
type Verifier struct {
	client  *http.Client
	allowed func(*url.URL) bool

	mu    sync.Mutex
	certs map[string]*x509.Certificate
}

// New returns a Verifier that only trusts certificates served over HTTPS by
// sns.<region>.amazonaws.com. A nil client gets a 10 second timeout.
func New(client *http.Client) *Verifier {
	return NewWithCertURLs(client, func(u *url.URL) bool {
		return u.Scheme == "https" && snsHost.MatchString(u.Hostname()) && strings.HasSuffix(u.Path, ".pem")
	})
}

// NewWithCertURLs returns a Verifier that fetches signing certificates from
// any URL allowed accepts.
func NewWithCertURLs(client *http.Client, allowed func(*url.URL) bool) *Verifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Verifier{client: client, allowed: allowed, certs: make(map[string]*x509.Certificate)}
}

// Verify returns nil when m carries a valid SNS signature.
func (v *Verifier) Verify(ctx context.Context, m Message) error {
	var (
		hash crypto.Hash
		sum  []byte
	)
	data, err := m.StringToSign()
	if err != nil {
		return err
	}
	switch m.SignatureVersion {
	case "1":
		h := sha1.Sum([]byte(data)) //nolint:gosec
		hash, sum = crypto.SHA1, h[:]
	case "2":
		h := sha256.Sum256([]byte(data))
		hash, sum = crypto.SHA256, h[:]
	default:
		return fmt.Errorf("%w: unsupported SignatureVersion %q", ErrInvalid, m.SignatureVersion)
	}

	sig, err := base64.StdEncoding.DecodeString(m.Signature)
	if err != nil || len(sig) == 0 {
		return fmt.Errorf("%w: signature is not base64", ErrInvalid)
	}

	cert, err := v.cert(ctx, m.SigningCertURL)
	if err != nil {
		return err
	}
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return fmt.Errorf("%w: signing certificate key is %T, want RSA", ErrInvalid, cert.PublicKey)
	}
	if err := rsa.VerifyPKCS1v15(pub, hash, sum, sig); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// cert returns the certificate at raw, downloading it on first use.
func (v *Verifier) cert(ctx context.Context, raw string) (*x509.Certificate, error) {
	u, err := url.Parse(raw)
	if err != nil || !v.allowed(u) {
		return nil, fmt.Errorf("%w: untrusted SigningCertURL %q", ErrInvalid, raw)
	}

	v.mu.Lock()
	c, ok := v.certs[raw]
	v.mu.Unlock()
	if ok {
		return c, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return nil, fmt.Errorf("build cert request: %w", err)
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch signing cert: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch signing cert: %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCert))
	if err != nil {
		return nil, fmt.Errorf("read signing cert: %w", err)
	}
	block, _ := pem.Decode(body)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("%w: signing cert is not PEM", ErrInvalid)
	}
	c, err = x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: parse signing cert: %v", ErrInvalid, err)
	}

	v.mu.Lock()
	v.certs[raw] = c
	v.mu.Unlock()
	return c, nil
}
