// Package tlscheck inspects the TLS certificate served by the webhook
// endpoint, for the `doctor` command.
package tlscheck

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"math"
	"net"
	"net/url"
	"time"
)

// expiringWithin is the window in which a valid certificate is reported as
// expiring.
const expiringWithin = 30 * 24 * time.Hour

// Status describes the leaf certificate of an HTTPS endpoint.
type Status struct {
	Endpoint string `json:"endpoint"`
	// Status is one of: valid | expiring | expired | untrusted | unreachable | plaintext.
	Status   string `json:"status"`
	DaysLeft int    `json:"days_left"`
	Issuer   string `json:"issuer,omitempty"`
	Subject  string `json:"subject,omitempty"`
	NotAfter string `json:"not_after,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Check dials the endpoint's host and describes its leaf certificate.
// Non-HTTPS endpoints report "plaintext"; roots is nil to use the system pool.
//
// The handshake itself does not verify the chain, so an expired certificate
// is still inspected and reported as "expired". Any other chain or hostname
// failure against roots is reported as "untrusted".
func Check(ctx context.Context, endpoint string, roots *x509.CertPool) (*Status, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	// The endpoint may embed a token in its path; never echo it.
	cs := &Status{Endpoint: u.Scheme + "://" + u.Host}
	if u.Scheme != "https" {
		cs.Status = "plaintext"
		return cs, nil
	}

	host := u.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "443")
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{},
		Config: &tls.Config{
			ServerName:         u.Hostname(),
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: true, //nolint:gosec // chain verified below
		},
	}
	netConn, err := dialer.DialContext(dialCtx, "tcp", host)
	if err != nil {
		cs.Status = "unreachable"
		cs.Error = err.Error()
		return cs, nil
	}
	conn := netConn.(*tls.Conn)
	defer conn.Close()

	peers := conn.ConnectionState().PeerCertificates
	if len(peers) == 0 {
		cs.Status = "unreachable"
		return cs, nil
	}

	leaf := peers[0]
	left := time.Until(leaf.NotAfter)

	cs.NotAfter = leaf.NotAfter.UTC().Format(time.RFC3339)
	cs.Issuer = leaf.Issuer.CommonName
	cs.Subject = leaf.Subject.CommonName
	cs.DaysLeft = int(math.Floor(left.Hours() / 24))

	if left <= 0 {
		cs.Status = "expired"
		return cs, nil
	}

	inter := x509.NewCertPool()
	for _, c := range peers[1:] {
		inter.AddCert(c)
	}
	_, err = leaf.Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: inter,
		DNSName:       u.Hostname(),
	})
	if err != nil {
		cs.Status = "untrusted"
		cs.Error = err.Error()
		return cs, nil
	}

	switch {
	case left <= expiringWithin:
		cs.Status = "expiring"
	default:
		cs.Status = "valid"
	}
	return cs, nil
}
