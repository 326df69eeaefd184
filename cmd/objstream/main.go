package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crateops/objstream/internal/app"
	"github.com/crateops/objstream/internal/infra/config"
	"github.com/crateops/objstream/internal/infra/logger"
	s3fetch "github.com/crateops/objstream/internal/s3"
	"github.com/crateops/objstream/internal/stream"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "objstream",
	Short: "objstream - concurrent ranged downloads from S3-compatible stores",
	Long: `objstream pulls objects from S3-compatible stores as ordered byte
streams, fetching fixed-size parts concurrently. It runs either as a
one-shot CLI download or as an HTTP gateway with a job queue.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "Path to the configuration file")
}

// buildApp loads config, wires the logger and the stream orchestrator for
// the chosen store profile.
func buildApp(ctx context.Context, storeID string) (*app.Context, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Path, logger.ParseLevel(cfg.Log.Level), cfg.Log.IncludeStdout)
	if err != nil {
		return nil, fmt.Errorf("could not open log file: %w", err)
	}

	prof, err := cfg.Store(storeID)
	if err != nil {
		return nil, err
	}

	client, err := s3fetch.NewPool().Client(ctx, s3fetch.Profile{
		ID:              prof.ID,
		Endpoint:        prof.Endpoint,
		Region:          prof.Region,
		AccessKeyID:     prof.AccessKeyID,
		SecretAccessKey: prof.SecretAccessKey,
		PathStyle:       prof.PathStyle,
	})
	if err != nil {
		return nil, fmt.Errorf("could not build store client: %w", err)
	}

	orch, err := stream.New(s3fetch.NewFetcher(client), stream.Options{
		PartSize:    cfg.Download.PartSize,
		Concurrency: cfg.Download.Concurrency,
		Logger:      log,
	})
	if err != nil {
		return nil, err
	}

	appCtx := app.NewContext(cfg, log)
	appCtx.Streamer = orch
	return appCtx, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
