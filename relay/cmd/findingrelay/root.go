package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "findingrelay",
		Short: "Relay compliance findings from SNS to Slack",
		Long: `findingrelay receives compliance findings delivered by SNS, drops those
outside the configured severity allow-list, renders the rest as a Slack
message and posts it to an incoming webhook.

Configuration comes from the environment (hookUrl, slackChannel,
severityFilter) and optionally a YAML file given with --config.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The Lambda runtime starts the bootstrap binary without arguments.
			if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
				return runLambda(opts)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("FINDINGRELAY_CONFIG"),
		"path to YAML config file (env FINDINGRELAY_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "",
		"override log level: debug|info|warn|error")

	cmd.AddCommand(
		newLambdaCmd(opts),
		newServeCmd(opts),
		newRenderCmd(opts),
		newPublishCmd(opts),
		newDoctorCmd(opts),
	)
	return cmd
}

// level picks the --log-level override, falling back to the configured level.
func (o *rootOptions) level(configured string) string {
	if o.logLevel != "" {
		return o.logLevel
	}
	return configured
}
