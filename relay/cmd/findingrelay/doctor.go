package main

import (
	"encoding/json"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/findingrelay/findingrelay/relay/internal/config"
	"github.com/findingrelay/findingrelay/relay/internal/filter"
	"github.com/findingrelay/findingrelay/relay/internal/tlscheck"
)

// doctorReport is printed by `doctor`. Secrets are never included.
type doctorReport struct {
	Webhook        string           `json:"webhook"`
	Channel        string           `json:"channel"`
	SeverityFilter string           `json:"severity_filter"`
	ConsoleURL     string           `json:"console_url"`
	GSLURL         string           `json:"gsl_url"`
	AuthMode       string           `json:"auth_mode"`
	AutoConfirm    bool             `json:"auto_confirm"`
	VerifySigs     bool             `json:"verify_signatures"`
	TopicARNs      []string         `json:"topic_arns,omitempty"`
	Certificate    *tlscheck.Status `json:"certificate,omitempty"`
	Problems       []string         `json:"problems,omitempty"`
}

func newDoctorCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Show the effective configuration and check the webhook endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOffline(opts.configPath)
			if err != nil {
				return err
			}

			rep := doctorReport{
				Webhook:        redact(cfg.Slack.HookURL),
				Channel:        cfg.Slack.Channel,
				SeverityFilter: filter.New(cfg.Slack.SeverityFilter).String(),
				ConsoleURL:     cfg.Links.ConsoleURL,
				GSLURL:         cfg.Links.GSLURL,
				AuthMode:       cfg.Server.Auth.Mode,
				AutoConfirm:    cfg.SNS.AutoConfirm,
				TopicARNs:      cfg.SNS.TopicARNs,
				VerifySigs:     !cfg.SNS.SkipSignatureVerification,
			}
			if rep.AuthMode == "" {
				rep.AuthMode = "none"
			}
			if cfg.Slack.HookURL == "" {
				rep.Problems = append(rep.Problems, "webhook URL is not set ("+config.EnvHookURL+")")
			} else {
				cs, err := tlscheck.Check(cmd.Context(), cfg.Slack.HookURL, nil)
				if err != nil {
					rep.Problems = append(rep.Problems, err.Error())
				} else {
					rep.Certificate = cs
					if cs.Status != "valid" {
						rep.Problems = append(rep.Problems, "webhook certificate is "+cs.Status)
					}
				}
			}
			if err := cfg.CheckServe(); err != nil {
				rep.Problems = append(rep.Problems, err.Error())
			}
			if cfg.Slack.Channel == "" {
				rep.Problems = append(rep.Problems, "channel is not set ("+config.EnvChannel+")")
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		},
	}
}

// redact keeps the scheme and host of a webhook URL; the path carries the
// webhook secret.
func redact(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "(unparseable)"
	}
	return u.Scheme + "://" + u.Host + "/<redacted>"
}
