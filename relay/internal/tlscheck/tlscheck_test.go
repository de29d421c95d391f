package tlscheck

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// serveCert starts a TLS server presenting a self-signed certificate for
// 127.0.0.1 that is valid in [notBefore, notAfter]. It returns the server and
// a pool trusting that certificate.
func serveCert(t *testing.T, notBefore, notAfter time.Time) (*httptest.Server, *x509.CertPool) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "hooks.test"},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse certificate: %v", err)
	}

	srv := httptest.NewUnstartedServer(http.NotFoundHandler())
	srv.TLS = &tls.Config{Certificates: []tls.Certificate{{
		Certificate: [][]byte{der},
		PrivateKey:  key,
		Leaf:        leaf,
	}}}
	srv.StartTLS()
	t.Cleanup(srv.Close)

	pool := x509.NewCertPool()
	pool.AddCert(leaf)
	return srv, pool
}

func TestCheck_Plaintext(t *testing.T) {
	cs, err := Check(context.Background(), "http://hooks.example.com/services/SECRET", nil)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if cs.Status != "plaintext" {
		t.Errorf("Status: got %q, want plaintext", cs.Status)
	}
	if strings.Contains(cs.Endpoint, "SECRET") {
		t.Errorf("Endpoint leaks path: %q", cs.Endpoint)
	}
}

func TestCheck_TLSServer(t *testing.T) {
	srv := httptest.NewTLSServer(http.NotFoundHandler())
	defer srv.Close()

	pool := x509.NewCertPool()
	pool.AddCert(srv.Certificate())

	cs, err := Check(context.Background(), srv.URL+"/services/x", pool)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	// httptest certificates are valid for decades.
	if cs.Status != "valid" {
		t.Errorf("Status: got %q, want valid (err %q)", cs.Status, cs.Error)
	}
	if cs.DaysLeft <= 30 {
		t.Errorf("DaysLeft: got %d, want > 30", cs.DaysLeft)
	}
	if cs.NotAfter == "" {
		t.Error("NotAfter: empty")
	}
}

func TestCheck_Untrusted(t *testing.T) {
	srv := httptest.NewTLSServer(http.NotFoundHandler())
	defer srv.Close()

	cs, err := Check(context.Background(), srv.URL, x509.NewCertPool())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if cs.Status != "untrusted" {
		t.Errorf("Status: got %q, want untrusted", cs.Status)
	}
	if cs.Error == "" {
		t.Error("Error: empty, want verification failure")
	}
	if cs.NotAfter == "" {
		t.Error("NotAfter: empty, want the certificate still inspected")
	}
}

func TestCheck_Expired(t *testing.T) {
	now := time.Now()
	srv, pool := serveCert(t, now.Add(-48*time.Hour), now.Add(-24*time.Hour))

	cs, err := Check(context.Background(), srv.URL, pool)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if cs.Status != "expired" {
		t.Errorf("Status: got %q, want expired (err %q)", cs.Status, cs.Error)
	}
	if cs.DaysLeft >= 0 {
		t.Errorf("DaysLeft: got %d, want negative", cs.DaysLeft)
	}
}

func TestCheck_Expiring(t *testing.T) {
	now := time.Now()
	srv, pool := serveCert(t, now.Add(-time.Hour), now.Add(10*24*time.Hour))

	cs, err := Check(context.Background(), srv.URL, pool)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if cs.Status != "expiring" {
		t.Errorf("Status: got %q, want expiring (err %q)", cs.Status, cs.Error)
	}
}

func TestCheck_Unreachable(t *testing.T) {
	srv := httptest.NewTLSServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cs, err := Check(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if cs.Status != "unreachable" {
		t.Errorf("Status: got %q, want unreachable", cs.Status)
	}
}
