package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/findingrelay/findingrelay/relay/internal/awssns"
)

func newPublishCmd(opts *rootOptions) *cobra.Command {
	var (
		file  string
		topic string
	)
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a finding to an SNS topic",
		Long: `publish validates a finding JSON document and publishes it to the given SNS
topic, exercising the whole delivery path of a subscribed relay.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if topic == "" {
				return errors.New("--topic-arn is required")
			}
			setupLogging(opts.level("info"))

			f, err := readFinding(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			client, err := awssns.New()
			if err != nil {
				return err
			}
			id, err := client.Publish(cmd.Context(), topic, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %s\n", id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "finding JSON file (default stdin)")
	cmd.Flags().StringVarP(&topic, "topic-arn", "t", "", "SNS topic ARN")
	return cmd
}
