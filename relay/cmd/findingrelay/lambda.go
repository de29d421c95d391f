package main

import (
	"log/slog"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"

	"github.com/findingrelay/findingrelay/relay/internal/config"
	"github.com/findingrelay/findingrelay/relay/internal/metrics"
	"github.com/findingrelay/findingrelay/relay/internal/relay"
	"github.com/findingrelay/findingrelay/relay/internal/slack"
)

func newLambdaCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lambda",
		Short: "Serve SNS events under the AWS Lambda runtime",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLambda(opts)
		},
	}
}

// runLambda reads the configuration once and hands the pipeline to the
// Lambda runtime. It does not return while the runtime is healthy.
func runLambda(opts *rootOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	setupLogging(opts.level(cfg.Log.Level))

	slog.Info("findingrelay lambda starting",
		"channel", cfg.Slack.Channel,
		"severity_filter", cfg.Slack.SeverityFilter,
	)

	rl := relay.New(cfg, slack.New(cfg.Slack.HookURL), metrics.New())
	lambda.Start(rl.HandleLambda)
	return nil
}
