package cli

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/routes/health"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ops server (health, stats, metrics)",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		e := echo.New()
		e.HideBanner = true
		e.Use(echomiddleware.Recover())
		e.Use(middleware.Context())

		checker := health.NewChecker(
			health.PingFunc(app.DB.PingContext),
			health.PingFunc(app.Redis.Ping),
			app.Profiles,
			app.Comments,
			appVersion,
		)
		checker.RegisterRoutes(e)
		checker.SetReady(true)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			addr := fmt.Sprintf(":%d", app.Config.Port)
			app.Logger.Infof("Ops server listening on %s", addr)
			if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		checker.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
