package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from both file and environment.
const (
	DefaultSeverityFilter = "high,medium,low"
	DefaultConsoleURL     = "https://secure.dome9.com"
	DefaultGSLURL         = "https://gsl.dome9.com"
	DefaultHTTPPort       = 8080
	DefaultPath           = "/sns"
	DefaultLogLevel       = "info"
)

// Environment variables read by Load. The first three keep the names used by
// existing Lambda deployments.
const (
	EnvHookURL        = "hookUrl"
	EnvChannel        = "slackChannel"
	EnvSeverityFilter = "severityFilter"
	EnvConsoleURL     = "consoleUrl"
	EnvGSLURL         = "gslUrl"
	EnvLogLevel       = "logLevel"
)

// ErrInvalid wraps every validation failure returned by Load.
var ErrInvalid = errors.New("invalid configuration")

// Config is the process-wide relay configuration. It is built once by Load
// and must be treated as read-only afterwards.
type Config struct {
	Slack  SlackConfig  `yaml:"slack"`
	Links  LinksConfig  `yaml:"links"`
	Server ServerConfig `yaml:"server"`
	SNS    SNSConfig    `yaml:"sns"`
	Log    LogConfig    `yaml:"log"`
}

// SlackConfig holds the delivery target and the severity allow-list.
type SlackConfig struct {
	// HookURL is the incoming-webhook endpoint messages are POSTed to.
	HookURL string `yaml:"hook_url"`

	// Channel is the target channel written into every message.
	Channel string `yaml:"channel"`

	// SeverityFilter is a comma-separated, case-insensitive allow-list.
	SeverityFilter string `yaml:"severity_filter"`
}

// LinksConfig holds the base URLs used when rendering links.
type LinksConfig struct {
	// ConsoleURL is the compliance console, e.g. https://secure.eu1.dome9.com
	// for EU tenants.
	ConsoleURL string `yaml:"console_url"`

	// GSLURL hosts the rule documentation pages keyed by rule ID.
	GSLURL string `yaml:"gsl_url"`
}

// ServerConfig configures the SNS HTTP/S endpoint used by `serve`.
type ServerConfig struct {
	HTTPPort int        `yaml:"http_port"`
	Path     string     `yaml:"path"`
	Auth     AuthConfig `yaml:"auth"`
}

// AuthConfig controls how SNS deliveries are authenticated.
type AuthConfig struct {
	// Mode is one of: basic | apikey | none.
	Mode string `yaml:"mode"`

	// Username is the literal basic-auth user, embedded by SNS from the
	// subscription URL.
	Username string `yaml:"username"`

	// PasswordEnv is the name of the environment variable holding the
	// basic-auth password.
	PasswordEnv string `yaml:"password_env"`

	// KeyEnv is the name of the environment variable holding the API key.
	KeyEnv string `yaml:"key_env"`

	// Header carries the API key. Defaults to "x-api-key".
	Header string `yaml:"header"`
}

// Password returns the basic-auth password resolved from the environment.
func (a AuthConfig) Password() string {
	if a.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(a.PasswordEnv)
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// SNSConfig controls handling of SNS subscription lifecycle messages.
type SNSConfig struct {
	// AutoConfirm confirms subscription requests through the SNS API.
	AutoConfirm bool `yaml:"auto_confirm"`

	// TopicARNs restricts accepted deliveries to these topics. Empty accepts all.
	TopicARNs []string `yaml:"topic_arns"`

	// SkipSignatureVerification accepts deliveries without checking their
	// SNS signature. Only for local testing behind another authenticator.
	SkipSignatureVerification bool `yaml:"skip_signature_verification"`
}

// AllowsTopic reports whether deliveries from arn are accepted.
func (s SNSConfig) AllowsTopic(arn string) bool {
	if len(s.TopicARNs) == 0 {
		return true
	}
	for _, a := range s.TopicARNs {
		if a == arn {
			return true
		}
	}
	return false
}

// LogConfig controls the process logger.
type LogConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`
}

// Load builds the configuration from the optional YAML file at path and the
// environment, then validates it. Environment variables override the file.
// An empty path reads the environment only.
func Load(path string) (*Config, error) {
	cfg, err := LoadOffline(path)
	if err != nil {
		return nil, err
	}
	if err := requireDelivery(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// LoadOffline is Load without the webhook URL and channel requirements, for
// commands that render messages without delivering them.
func LoadOffline(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	applyEnv(cfg)
	fillDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Links: LinksConfig{
			ConsoleURL: DefaultConsoleURL,
			GSLURL:     DefaultGSLURL,
		},
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			Path:     DefaultPath,
		},
		Log: LogConfig{Level: DefaultLogLevel},
	}
}

// fillDefaults restores defaults for fields a file explicitly blanked.
// The severity filter is left as-is: an empty filter means the default
// allow-list and is resolved by the filter itself.
func fillDefaults(cfg *Config) {
	if cfg.Links.ConsoleURL == "" {
		cfg.Links.ConsoleURL = DefaultConsoleURL
	}
	if cfg.Links.GSLURL == "" {
		cfg.Links.GSLURL = DefaultGSLURL
	}
	cfg.Links.ConsoleURL = strings.TrimRight(cfg.Links.ConsoleURL, "/")
	cfg.Links.GSLURL = strings.TrimRight(cfg.Links.GSLURL, "/")
	if cfg.Server.Path == "" {
		cfg.Server.Path = DefaultPath
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
}

// applyEnv overlays set environment variables onto cfg.
func applyEnv(cfg *Config) {
	overlay := func(dst *string, name string) {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*dst = v
		}
	}
	overlay(&cfg.Slack.HookURL, EnvHookURL)
	overlay(&cfg.Slack.Channel, EnvChannel)
	overlay(&cfg.Slack.SeverityFilter, EnvSeverityFilter)
	overlay(&cfg.Links.ConsoleURL, EnvConsoleURL)
	overlay(&cfg.Links.GSLURL, EnvGSLURL)
	overlay(&cfg.Log.Level, EnvLogLevel)
}

// validate checks structural constraints on the merged configuration.
func validate(cfg *Config) error {
	if cfg.Slack.HookURL != "" {
		if err := checkURL("slack.hook_url", cfg.Slack.HookURL); err != nil {
			return err
		}
	}
	if err := checkURL("links.console_url", cfg.Links.ConsoleURL); err != nil {
		return err
	}
	if err := checkURL("links.gsl_url", cfg.Links.GSLURL); err != nil {
		return err
	}
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("%w: server.http_port %d is out of range [1, 65535]", ErrInvalid, cfg.Server.HTTPPort)
	}
	if !strings.HasPrefix(cfg.Server.Path, "/") {
		return fmt.Errorf("%w: server.path %q must start with /", ErrInvalid, cfg.Server.Path)
	}
	switch cfg.Server.Auth.Mode {
	case "basic":
		if cfg.Server.Auth.Username == "" {
			return fmt.Errorf("%w: server.auth.username is required for basic auth", ErrInvalid)
		}
		if cfg.Server.Auth.Password() == "" {
			return fmt.Errorf("%w: basic auth password is empty (server.auth.password_env %q)", ErrInvalid, cfg.Server.Auth.PasswordEnv)
		}
	case "apikey":
		if cfg.Server.Auth.Key() == "" {
			return fmt.Errorf("%w: api key is empty (server.auth.key_env %q)", ErrInvalid, cfg.Server.Auth.KeyEnv)
		}
	case "none", "":
	default:
		return fmt.Errorf("%w: server.auth.mode %q unknown: want basic|apikey|none", ErrInvalid, cfg.Server.Auth.Mode)
	}
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log.level %q unknown: want debug|info|warn|error", ErrInvalid, cfg.Log.Level)
	}
	return nil
}

// CheckServe reports whether cfg is safe to expose as an SNS endpoint: with
// signature verification off, deliveries must be authenticated or limited to
// known topics.
func (c *Config) CheckServe() error {
	if !c.SNS.SkipSignatureVerification {
		return nil
	}
	mode := c.Server.Auth.Mode
	if (mode == "" || mode == "none") && len(c.SNS.TopicARNs) == 0 {
		return fmt.Errorf("%w: sns.skip_signature_verification needs server.auth or sns.topic_arns", ErrInvalid)
	}
	return nil
}

// requireDelivery checks the fields needed to post messages.
func requireDelivery(cfg *Config) error {
	if cfg.Slack.HookURL == "" {
		return fmt.Errorf("%w: webhook URL is required (%s or slack.hook_url)", ErrInvalid, EnvHookURL)
	}
	if cfg.Slack.Channel == "" {
		return fmt.Errorf("%w: channel is required (%s or slack.channel)", ErrInvalid, EnvChannel)
	}
	return nil
}

func checkURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, field, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("%w: %s %q must be an http(s) URL", ErrInvalid, field, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %s %q has no host", ErrInvalid, field, raw)
	}
	return nil
}
