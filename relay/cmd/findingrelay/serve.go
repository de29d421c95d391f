package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/findingrelay/findingrelay/relay/internal/awssns"
	"github.com/findingrelay/findingrelay/relay/internal/config"
	"github.com/findingrelay/findingrelay/relay/internal/metrics"
	"github.com/findingrelay/findingrelay/relay/internal/receiver"
	"github.com/findingrelay/findingrelay/relay/internal/relay"
	"github.com/findingrelay/findingrelay/relay/internal/slack"
	"github.com/findingrelay/findingrelay/relay/internal/snsverify"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		port  int
		watch bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve an HTTP endpoint for SNS HTTP/S subscriptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, port, watch)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "override server.http_port")
	cmd.Flags().BoolVar(&watch, "watch", false, "reload the config file when it changes")
	return cmd
}

func runServe(parent context.Context, opts *rootOptions, port int, watch bool) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if port != 0 {
		cfg.Server.HTTPPort = port
	}
	if err := cfg.CheckServe(); err != nil {
		return err
	}
	setupLogging(opts.level(cfg.Log.Level))

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"path", cfg.Server.Path,
		"auth_mode", cfg.Server.Auth.Mode,
		"channel", cfg.Slack.Channel,
		"severity_filter", cfg.Slack.SeverityFilter,
		"auto_confirm", cfg.SNS.AutoConfirm,
		"verify_signatures", !cfg.SNS.SkipSignatureVerification,
	)

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var confirmer receiver.Confirmer
	if cfg.SNS.AutoConfirm {
		c, err := awssns.New()
		if err != nil {
			return err
		}
		confirmer = c
	}

	var verifier receiver.Verifier
	if cfg.SNS.SkipSignatureVerification {
		slog.Warn("SNS signature verification disabled")
	} else {
		verifier = snsverify.New(nil)
	}

	m := metrics.New()
	rcv := receiver.New(cfg, relay.New(cfg, slack.New(cfg.Slack.HookURL), m), m, confirmer, verifier)

	if watch {
		if opts.configPath == "" {
			return errors.New("--watch needs a config file (--config)")
		}
		go func() {
			err := config.Watch(ctx, opts.configPath, func(updated *config.Config) {
				rcv.Update(updated, relay.New(updated, slack.New(updated.Slack.HookURL), m))
				slog.Info("pipeline reloaded",
					"channel", updated.Slack.Channel,
					"severity_filter", updated.Slack.SeverityFilter,
				)
			})
			if err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           rcv,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("findingrelay shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
