package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/dispatch-service/internal/api/http"
	"github.com/spec-kit/dispatch-service/internal/api/http/handlers"
	"github.com/spec-kit/dispatch-service/internal/auth"
)

func newServeCmd() *cobra.Command {
	var noDispatcher bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the analysis dispatcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadBase()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			rt, err := newRuntime(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer rt.close()

			app := fiber.New(fiber.Config{
				AppName:               cfg.App.Name,
				DisableStartupMessage: true,
				ErrorHandler:          httptransport.ErrorHandler(logger, rt.metrics),
			})
			httptransport.RegisterMiddlewares(app, logger, rt.metrics, time.Duration(cfg.App.RequestTimeoutSeconds)*time.Second)
			httptransport.RegisterRoutes(app, httptransport.RouteConfig{
				Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, rt.healthChecks()),
				Requests:       handlers.NewServiceRequestsHandler(rt.requestService),
				Matching:       handlers.NewMatchingHandler(rt.matchingService),
				Events:         handlers.NewEventsHandler(rt.requestService, rt.broadcaster, cfg.Notification.HeartbeatInterval, logger.Named("sse")),
				AuthMiddleware: auth.NewAuthMiddleware(auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)),
				Metrics:        rt.metrics,
			})

			var wg sync.WaitGroup
			if cfg.Dispatcher.Enabled && !noDispatcher {
				wg.Add(1)
				go func() {
					defer wg.Done()
					rt.dispatcher.Run(ctx)
				}()
			} else {
				logger.Info("analysis dispatcher disabled")
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			err = serveUntilStopped(app, cfg.App.Addr(), sigCh, logger)
			cancel()
			wg.Wait()
			return err
		},
	}
	cmd.Flags().BoolVar(&noDispatcher, "no-dispatcher", false, "serve HTTP only, without polling for analysis")
	return cmd
}

// serveUntilStopped listens on addr until a signal arrives or Listen fails, then
// shuts the app down. A failed Listen is returned so the process exits non-zero.
func serveUntilStopped(app *fiber.App, addr string, stop <-chan os.Signal, logger *zap.Logger) error {
	listenErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", addr))
		listenErr <- app.Listen(addr)
	}()

	var failed error
	select {
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-listenErr:
		if err != nil {
			logger.Error("fiber listen", zap.Error(err))
			failed = fmt.Errorf("http listen on %s: %w", addr, err)
		}
	}

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	return failed
}

func (rt *runtime) healthChecks() map[string]handlers.Check {
	checks := map[string]handlers.Check{}
	if rt.pg.PoolHandle() != nil {
		checks["postgres"] = rt.pg.Ping
	}
	if rt.redis != nil {
		checks["redis"] = rt.redis.Ping
	}
	return checks
}
