package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"

	"github.com/crateops/objstream/internal/domain"
	"github.com/crateops/objstream/internal/engine"
)

var (
	getRange string
	getPart  int32
	getStore string
	getOut   string
)

func init() {
	getCmd.Flags().StringVar(&getRange, "range", "", `Byte range to fetch, e.g. "bytes=0-1023"`)
	getCmd.Flags().Int32Var(&getPart, "part", 0, "Storage-assigned part number to fetch")
	getCmd.Flags().StringVar(&getStore, "store", "", "Store profile ID (defaults to the first configured store)")
	getCmd.Flags().StringVarP(&getOut, "output", "o", "", "Output path (defaults to the object's base name)")
	rootCmd.AddCommand(getCmd)
}

var getCmd = &cobra.Command{
	Use:   "get <bucket>/<key>",
	Short: "Download one object to a local file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bucket, key, found := strings.Cut(args[0], "/")
		if !found || bucket == "" || key == "" {
			return fmt.Errorf("expected <bucket>/<key>, got %q", args[0])
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		appCtx, err := buildApp(ctx, getStore)
		if err != nil {
			return err
		}

		dest := getOut
		if dest == "" {
			dest = filepath.Base(key)
		}

		job := &domain.Job{
			ID: ksuid.New().String(),
			Request: domain.DownloadRequest{
				Ref:        domain.ObjectRef{Bucket: bucket, Key: key},
				Range:      getRange,
				PartNumber: getPart,
			},
			Dest:      dest,
			Status:    domain.StatusDownloading,
			CreatedAt: time.Now(),
			StartedAt: time.Now(),
		}

		go reportProgress(ctx, job)

		svc := engine.NewService(appCtx)
		if err := svc.Download(ctx, job); err != nil {
			return fmt.Errorf("download failed: %w", err)
		}
		return nil
	},
}

// reportProgress logs throughput once a second until the context ends.
func reportProgress(ctx context.Context, job *domain.Job) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	var lastBytes int64

	for {
		select {
		case <-ticker.C:
			current := job.Progress()
			delta := current - lastBytes
			lastBytes = current

			total := job.Total()
			if total <= 0 {
				continue
			}
			percent := float64(current) / float64(total) * 100
			speedMbps := float64(delta) * 8 / (1024 * 1024)

			fmt.Printf("\r%5.1f%% | %6.2f Mbps | %d/%d MB      ",
				percent, speedMbps, current/1024/1024, total/1024/1024)
		case <-ctx.Done():
			return
		}
	}
}
