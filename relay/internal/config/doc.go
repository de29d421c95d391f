// Package config builds the relay configuration from an optional YAML file
// and the process environment.
//
// Config fields:
//   - Slack.HookURL         webhook endpoint (env hookUrl, required)
//   - Slack.Channel         target channel (env slackChannel, required)
//   - Slack.SeverityFilter  CSV allow-list (env severityFilter, default high,medium,low)
//   - Links.ConsoleURL      compliance console base (env consoleUrl)
//   - Links.GSLURL          rule documentation base (env gslUrl)
//   - Server.*              SNS HTTP/S endpoint settings for `serve`
//   - SNS.*                 subscription auto-confirm and topic allow-list
//   - Log.Level             slog level (env logLevel, default info)
//
// Load(path) applies defaults before unmarshalling, overlays the environment,
// then validates. Watch(ctx, path, onChange) re-runs Load whenever the file
// changes and hands each new Config to onChange.
package config
