package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/findingrelay/findingrelay/relay/internal/config"
	"github.com/findingrelay/findingrelay/relay/internal/slack"
)

const openSSH = `{"rule":{"name":"Open SSH","severity":"High","ruleId":"D9.AWS.NET.05"},
"entity":{"type":"SecurityGroup","id":"sg-1"},
"account":{"id":"111","name":"Prod","vendor":"AWS","dome9CloudAccountId":"abc"},
"status":"Failed","reportTime":"2024-01-01T00:00:00Z","region":"us-east-1"}`

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		config.EnvHookURL, config.EnvChannel, config.EnvSeverityFilter,
		config.EnvConsoleURL, config.EnvGSLURL, config.EnvLogLevel,
		"FINDINGRELAY_CONFIG", "AWS_LAMBDA_RUNTIME_API",
	} {
		t.Setenv(name, "")
	}
}

// run executes the CLI with args and stdin, returning stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRender_Text(t *testing.T) {
	clearEnv(t)
	out, err := run(t, openSSH, "render")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"*Dome9 Compliance & Governance*", "Open SSH", "D9.AWS.NET.05", "security-group/aws/sg-1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRender_PayloadFromFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvChannel, "#compliance")
	p := filepath.Join(t.TempDir(), "finding.json")
	if err := os.WriteFile(p, []byte(openSSH), 0o600); err != nil {
		t.Fatalf("write finding: %v", err)
	}

	out, err := run(t, "", "render", "--payload", "-f", p)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	var msg slack.Message
	if err := json.Unmarshal([]byte(out), &msg); err != nil {
		t.Fatalf("decode payload: %v\n%s", err, out)
	}
	if msg.Channel != "#compliance" {
		t.Errorf("channel: got %q", msg.Channel)
	}
	if !strings.Contains(msg.Text, "sg-1") {
		t.Errorf("text missing sg-1: %q", msg.Text)
	}
}

func TestRender_Dropped(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvSeverityFilter, "critical")

	out, err := run(t, openSSH, "render")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "Finding dropped due to severity filter. Severity levels allowed: critical") {
		t.Errorf("output: got %q", out)
	}
}

func TestRender_Malformed(t *testing.T) {
	clearEnv(t)
	if _, err := run(t, `{"rule":{}}`, "render"); err == nil {
		t.Fatal("expected error for malformed finding")
	}
}

func TestPublish_RequiresTopic(t *testing.T) {
	clearEnv(t)
	if _, err := run(t, openSSH, "publish"); err == nil || !strings.Contains(err.Error(), "--topic-arn") {
		t.Fatalf("err: got %v, want --topic-arn required", err)
	}
}

func TestDoctor_ReportsProblems(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvHookURL, "http://hooks.example.com/services/T0/B0/SECRET")

	out, err := run(t, "", "doctor")
	if err != nil {
		t.Fatalf("doctor: %v", err)
	}
	if strings.Contains(out, "SECRET") {
		t.Errorf("doctor leaked webhook secret:\n%s", out)
	}

	var rep doctorReport
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if rep.SeverityFilter != "high,medium,low" {
		t.Errorf("severity_filter: got %q", rep.SeverityFilter)
	}
	if rep.Certificate == nil || rep.Certificate.Status != "plaintext" {
		t.Errorf("certificate: got %+v, want plaintext", rep.Certificate)
	}
	if len(rep.Problems) != 2 {
		t.Errorf("problems: got %v, want plaintext certificate and missing channel", rep.Problems)
	}
}

func TestServe_WatchRequiresConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvHookURL, "https://hooks.example.com/x")
	t.Setenv(config.EnvChannel, "#c")

	_, err := run(t, "", "serve", "--watch")
	if err == nil || !strings.Contains(err.Error(), "--watch") {
		t.Fatalf("err: got %v, want --watch needs a config file", err)
	}
}

func TestServe_MissingDeliveryConfig(t *testing.T) {
	clearEnv(t)
	if _, err := run(t, "", "serve"); err == nil {
		t.Fatal("expected configuration error")
	}
}

func TestServe_RefusesOpenUnverifiedEndpoint(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvHookURL, "https://hooks.example.com/x")
	t.Setenv(config.EnvChannel, "#c")
	p := filepath.Join(t.TempDir(), "relay.yaml")
	if err := os.WriteFile(p, []byte("sns:\n  skip_signature_verification: true\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := run(t, "", "serve", "--config", p)
	if !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("err: got %v, want ErrInvalid", err)
	}
}
