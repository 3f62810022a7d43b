package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"nyx-chat/internal/application"
	"nyx-chat/internal/config"
	"nyx-chat/internal/domain"
	"nyx-chat/internal/infra/logging"
	"nyx-chat/internal/infra/metrics"
	"nyx-chat/internal/ui"
)

type rootOptions struct {
	configPath string
	dev        bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "nyx",
		Short: "Nyx Ai, a minimal conversational assistant for the terminal",
		Long: `Nyx Ai is a chat client for hosted language models. Conversations are kept
on this machine and resumed on the next start; sign-in goes through the configured
identity provider.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), opts)
		},
	}
	cmd.SetVersionTemplate(fmt.Sprintf("nyx %s (commit %s)\n", version, commit))
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "nyx.yaml", "path to YAML config file")
	cmd.PersistentFlags().BoolVar(&opts.dev, "dev", false, "enable developer mode (console logs, unredacted fields)")

	cmd.AddCommand(newAskCmd(opts), newSessionsCmd(opts), newModelsCmd(opts))
	return cmd
}

// session is everything a command needs: a started client and its logger.
type session struct {
	client *application.Client
	logger *zerolog.Logger
	cfg    *config.Config
	close  func()
}

func openSession(ctx context.Context, opts *rootOptions) (*session, error) {
	cfg, err := config.LoadConfig(opts.configPath, opts.dev)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger, logCloser, err := logging.New(cfg.Log, cfg.Runtime.Dev)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	client, err := application.Build(ctx, cfg, logger)
	if err != nil {
		_ = logCloser.Close()
		return nil, err
	}
	client.Start(ctx)

	return &session{
		client: client,
		logger: logger,
		cfg:    cfg,
		close: func() {
			if err := client.Close(); err != nil {
				logger.Warn().Err(err).Msg("close client")
			}
			_ = logCloser.Close()
		},
	}, nil
}

// requireUser waits for the auth gate and fails unless someone is signed in.
func (s *session) requireUser(ctx context.Context) error {
	select {
	case <-s.client.Auth.Ready():
	case <-ctx.Done():
		return ctx.Err()
	}
	if !s.client.Auth.SignedIn() {
		return fmt.Errorf("%w: run nyx to sign in first", domain.ErrNotAuthenticated)
	}
	return nil
}

func runTUI(ctx context.Context, opts *rootOptions) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.close()

	metrics.SetBuildInfo(version, commit)
	if addr := s.cfg.Metrics.Listen; addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr, s.logger); err != nil {
				s.logger.Error().Err(err).Msg("metrics server")
			}
		}()
	}

	s.logger.Info().
		Str("version", version).
		Str("storage", s.cfg.Storage.Driver).
		Str("ai", s.cfg.AI.Provider).
		Str("identity", s.cfg.Identity.Provider).
		Msg("nyx starting")

	if err := ui.Run(ctx, s.client); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
