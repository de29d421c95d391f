// Command findingrelay forwards compliance findings published to SNS into a
// Slack channel.
//
// Started by the AWS Lambda runtime it serves SNS events; otherwise it runs
// the subcommand named on the command line (serve, render, publish, doctor).
package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func main() {
	cobra.CheckErr(newRootCmd().Execute())
}

// setupLogging installs the JSON process logger at the given level.
func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
}
