package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	httpctrl "github.com/secmon-lab/medinotes/pkg/controller/http"
	"github.com/secmon-lab/medinotes/pkg/service/worker"
	"github.com/secmon-lab/medinotes/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var (
		addr          string
		secureCookie  bool
		sessionTTL    time.Duration
		purgeInterval time.Duration
		cfg           clientConfig
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Aliases:     []string{"a"},
			Usage:       "Listen address",
			Value:       ":8080",
			Sources:     cli.EnvVars("MEDINOTES_ADDR"),
			Destination: &addr,
		},
		&cli.BoolFlag{
			Name:        "secure-cookie",
			Usage:       "Always mark the session cookie Secure (set when served behind a TLS terminating proxy)",
			Sources:     cli.EnvVars("MEDINOTES_SECURE_COOKIE"),
			Destination: &secureCookie,
		},
		&cli.DurationFlag{
			Name:        "session-ttl",
			Usage:       "Idle time after which a browser session is purged",
			Value:       24 * time.Hour,
			Sources:     cli.EnvVars("MEDINOTES_SESSION_TTL"),
			Destination: &sessionTTL,
		},
		&cli.DurationFlag{
			Name:        "purge-interval",
			Usage:       "Interval between idle session purges",
			Value:       10 * time.Minute,
			Sources:     cli.EnvVars("MEDINOTES_PURGE_INTERVAL"),
			Destination: &purgeInterval,
		},
	}
	flags = append(flags, cfg.backend.Flags()...)
	flags = append(flags, cfg.repo.Flags()...)
	flags = append(flags, cfg.gemini.Flags()...)
	flags = append(flags, cfg.recording.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the browser front end server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logging.Default().Info("starting server",
				"addr", addr,
				group("backend", cfg.backend.LogAttrs()),
				group("repository", cfg.repo.LogAttrs()),
				group("gemini", cfg.gemini.LogAttrs()),
				group("recording", cfg.recording.LogAttrs()),
			)

			repo, err := cfg.repo.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize session store")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			uc, closeUC, err := cfg.useCases(ctx)
			if err != nil {
				return err
			}
			defer closeUC()

			purger := worker.NewSessionPurgeWorker(repo, sessionTTL, purgeInterval)
			if err := purger.Start(ctx); err != nil {
				return goerr.Wrap(err, "failed to start session purge worker")
			}

			handler, err := httpctrl.New(uc, repo.Session(), httpctrl.WithSecureCookie(secureCookie))
			if err != nil {
				purger.Stop()
				return goerr.Wrap(err, "failed to create http server")
			}
			server := &http.Server{
				Addr:              addr,
				Handler:           handler,
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("HTTP server listening", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				purger.Stop()
				return err
			case sig := <-sigCh:
				logging.Default().Info("received shutdown signal", "signal", sig)

				purger.Stop()

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}
				// Summary pushes still in flight
				if err := uc.Wait(shutdownCtx); err != nil {
					logging.Default().Warn("pending backend updates did not finish", "error", err.Error())
				}

				logging.Default().Info("server shutdown completed")
				return nil
			}
		},
	}
}

func group(key string, attrs []slog.Attr) slog.Attr {
	return slog.Attr{Key: key, Value: slog.GroupValue(attrs...)}
}
