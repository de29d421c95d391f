package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/findingrelay/findingrelay/pkg/types"
	"github.com/findingrelay/findingrelay/relay/internal/config"
	"github.com/findingrelay/findingrelay/relay/internal/envelope"
	"github.com/findingrelay/findingrelay/relay/internal/filter"
	"github.com/findingrelay/findingrelay/relay/internal/format"
	"github.com/findingrelay/findingrelay/relay/internal/slack"
)

func newRenderCmd(opts *rootOptions) *cobra.Command {
	var (
		file    string
		payload bool
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a finding as it would be posted, without posting it",
		Long: `render reads a finding JSON document (from --file or stdin), applies the
severity filter and prints the message text. With --payload it prints the
JSON body that would be sent to the webhook.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOffline(opts.configPath)
			if err != nil {
				return err
			}
			f, err := readFinding(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			flt := filter.New(cfg.Slack.SeverityFilter)
			if !flt.Allow(f.Rule.Severity) {
				fmt.Fprintln(out, flt.Reason())
				return nil
			}

			text := format.New(cfg.Links.ConsoleURL, cfg.Links.GSLURL).Text(f)
			if !payload {
				fmt.Fprintln(out, text)
				return nil
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(slack.Message{Channel: cfg.Slack.Channel, Text: text})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "finding JSON file (default stdin)")
	cmd.Flags().BoolVar(&payload, "payload", false, "print the webhook JSON body instead of the text")
	return cmd
}

// readFinding decodes a finding from path, or from stdin when path is empty.
func readFinding(stdin io.Reader, path string) (*types.Finding, error) {
	r := stdin
	if path != "" {
		fh, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open finding: %w", err)
		}
		defer fh.Close()
		r = fh
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read finding: %w", err)
	}
	return envelope.DecodeMessage(string(raw))
}
