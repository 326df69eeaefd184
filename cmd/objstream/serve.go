package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/spf13/cobra"

	"github.com/crateops/objstream/internal/api"
	"github.com/crateops/objstream/internal/engine"
	"github.com/crateops/objstream/internal/store"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP gateway and the download job queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		appCtx, err := buildApp(ctx, "")
		if err != nil {
			return err
		}

		var hist *store.HistoryStore
		switch appCtx.Config.History.Driver {
		case "postgres":
			hist, err = store.OpenPostgres(appCtx.Config.History.PostgresDSN)
		default:
			hist, err = store.OpenSQLite(appCtx.Config.History.SQLitePath)
		}
		if err != nil {
			appCtx.Logger.Fatal("Could not open history store: %v", err)
		}
		defer hist.Close()

		appCtx.Store = hist
		appCtx.Downloader = engine.NewService(appCtx)

		queue := engine.NewQueueManager(appCtx, true)
		appCtx.Queue = queue
		go queue.Start(ctx)

		e := echo.New()
		api.RegisterRoutes(e, appCtx)

		srv := &http.Server{
			Addr:    ":" + appCtx.Config.Port,
			Handler: e,
			// Route net/http's own error lines through the app logger.
			ErrorLog: log.New(appCtx.Logger, "", 0),
		}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		appCtx.Logger.Info("Listening on :%s", appCtx.Config.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}
