package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wans112/web-toko/internal/config"
	"github.com/wans112/web-toko/internal/heartbeat"
	"github.com/wans112/web-toko/internal/observability"
)

const flushTimeout = 5 * time.Second

var errRejected = errors.New("identity rejected by server")

type options struct {
	server   string
	token    string
	interval time.Duration
	timeout  time.Duration
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "heartbeat",
		Short: "Keep a session marked online",
		Long: `heartbeat verifies the session token against the server, then asserts
presence every interval until it is stopped.

Signals:
  SIGUSR1        pause heartbeats (client hidden)
  SIGUSR2        resume heartbeats (client visible)
  SIGINT/SIGTERM send a final offline assertion and exit

Environment:
  HEARTBEAT_SERVER_URL, HEARTBEAT_TOKEN, HEARTBEAT_INTERVAL,
  HEARTBEAT_REQUEST_TIMEOUT, AUTH_COOKIE_NAME, LOG_LEVEL`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.server, "server", "", "server base URL (overrides HEARTBEAT_SERVER_URL)")
	flags.StringVar(&opts.token, "token", "", "session token (overrides HEARTBEAT_TOKEN)")
	flags.DurationVar(&opts.interval, "interval", 0, "heartbeat interval (overrides HEARTBEAT_INTERVAL)")
	flags.DurationVar(&opts.timeout, "timeout", 0, "per-request timeout (overrides HEARTBEAT_REQUEST_TIMEOUT)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	return cmd
}

// resolve merges flags over the environment configuration.
func resolve(cmd *cobra.Command, opts *options) (*config.ClientConfig, error) {
	cfg, err := config.LoadClient()
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.ServerURL = strings.TrimRight(opts.server, "/")
	}
	if flags.Changed("token") {
		cfg.Token = opts.token
	}
	if flags.Changed("interval") {
		cfg.Interval = opts.interval
	}
	if flags.Changed("timeout") {
		cfg.RequestTimeout = opts.timeout
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	return cfg, nil
}

func run(ctx context.Context, cmd *cobra.Command, opts *options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := resolve(cmd, opts)
	if err != nil {
		return err
	}

	logger, err := observability.NewCLILogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	client, err := heartbeat.NewHTTPClient(heartbeat.HTTPClientConfig{
		ServerURL:     cfg.ServerURL,
		Token:         cfg.Token,
		CookieName:    cfg.CookieName,
		BeaconTimeout: cfg.RequestTimeout,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	rejected := make(chan struct{}, 1)
	sup, err := heartbeat.New(heartbeat.Config{
		Checker:        client,
		Presence:       client,
		Interval:       cfg.Interval,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger,
		OnTransition: func(from, to heartbeat.Phase) {
			logger.Info("phase", zap.Stringer("from", from), zap.Stringer("to", to))
			if to == heartbeat.PhaseRejected {
				select {
				case rejected <- struct{}{}:
				default:
				}
			}
		},
	})
	if err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 4)
	signal.Notify(sigCh, watchedSignals()...)
	defer signal.Stop(sigCh)

	go func() {
		_ = sup.Run(context.Background())
	}()
	sup.Post(heartbeat.Mount)

	var result error
	ctxDone := ctx.Done()
loop:
	for {
		select {
		case sig := <-sigCh:
			ev, ok := eventForSignal(sig)
			if !ok {
				continue
			}
			logger.Debug("signal", zap.String("signal", sig.String()), zap.Stringer("event", ev.Kind))
			sup.Post(ev)
		case <-rejected:
			result = errRejected
			sup.Post(heartbeat.Teardown)
		case <-ctxDone:
			ctxDone = nil
			sup.Post(heartbeat.Teardown)
		case <-sup.Done():
			break loop
		}
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := client.Flush(flushCtx); err != nil {
		logger.Warn("offline beacon did not complete", zap.Error(err))
	}
	return result
}
