// Command podkeep-cli runs downloads, cleanup and device sync directly
// against the local library, without the HTTP server.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbeaumont/podkeep/internal/cleanup"
	"github.com/tbeaumont/podkeep/internal/config"
	"github.com/tbeaumont/podkeep/internal/device"
	"github.com/tbeaumont/podkeep/internal/downloader"
	"github.com/tbeaumont/podkeep/internal/events"
	"github.com/tbeaumont/podkeep/internal/models"
	"github.com/tbeaumont/podkeep/internal/store"
)

// Build information set via ldflags
var version = "dev"

var (
	cleanAll       bool
	cleanOlderThan int
	syncDryRun     bool
	syncDelete     bool
)

var rootCmd = &cobra.Command{
	Use:   "podkeep-cli",
	Short: "Manage podcast downloads and device sync from the command line",
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("podkeep-cli %s\n", version)
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download <episode-id>",
	Short: "Download one episode and wait for it to finish",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		cfg, st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		bus := events.NewBus()
		coord := downloader.New(st, bus, cfg.Downloads.Path, cfg.Downloads.UserAgent, 1)
		coord.Start()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			coord.Shutdown(ctx)
		}()

		sub := bus.Subscribe(64)
		defer bus.Unsubscribe(sub)

		handle, err := coord.Enqueue(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Downloading to %s\n", handle.DestinationPath)

		for p := range sub.C() {
			if p.EpisodeID != handle.EpisodeID {
				continue
			}
			switch p.State {
			case models.StateRunning:
				if p.ContentLength > 0 {
					fmt.Printf("\r%d / %d bytes", p.BytesDownloaded, p.ContentLength)
				} else {
					fmt.Printf("\r%d bytes", p.BytesDownloaded)
				}
			case models.StateCompleted:
				fmt.Printf("\nDone (%d bytes).\n", p.BytesDownloaded)
				return nil
			case models.StateFailed:
				fmt.Println()
				return fmt.Errorf("download failed: %s", p.Error)
			case models.StateCancelled:
				fmt.Println()
				return fmt.Errorf("download cancelled")
			}
		}
		return fmt.Errorf("event stream closed before the download finished")
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete downloaded episode files",
	RunE: func(_ *cobra.Command, _ []string) error {
		if !cleanAll && cleanOlderThan <= 0 {
			return fmt.Errorf("pass --all or --older-than <days>")
		}
		_, st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		policy := models.CleanupPolicy{Bulk: cleanAll}
		if cleanOlderThan > 0 {
			policy.MaxAge = time.Duration(cleanOlderThan) * 24 * time.Hour
		}
		report, err := cleanup.New(st).Clean(policy)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d, kept %d.\n", report.Deleted, report.Skipped)
		for _, e := range report.Errors {
			fmt.Fprintf(os.Stderr, "error: %s\n", e)
		}
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync [target-path]",
	Short: "Mirror downloaded episodes and playlists onto a device",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		cfg, st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		target := cfg.Sync.DevicePath
		if len(args) == 1 {
			target = args[0]
		}
		if target == "" {
			return fmt.Errorf("no target path given and sync.device_path is not configured")
		}

		result, err := device.New(st).Sync(context.Background(), target, device.Options{
			DryRun:        syncDryRun,
			DeleteOrphans: syncDelete,
		})
		if err != nil {
			return err
		}
		verb := "Copied"
		if result.DryRun {
			verb = "Would copy"
		}
		fmt.Printf("%s %d, skipped %d, deleted %d.\n", verb, result.Copied, result.Skipped, result.Deleted)
		for _, e := range result.Errors {
			fmt.Fprintf(os.Stderr, "error: %s\n", e)
		}
		if len(result.Errors) > 0 {
			return fmt.Errorf("%d files failed", len(result.Errors))
		}
		return nil
	},
}

func openStore() (*config.Config, *store.JSONStore, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	return cfg, st, nil
}

func init() {
	log.SetFlags(0)
	cleanCmd.Flags().BoolVar(&cleanAll, "all", false, "delete every downloaded file")
	cleanCmd.Flags().IntVar(&cleanOlderThan, "older-than", 0, "delete files downloaded more than this many days ago")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "report the plan without touching the device")
	syncCmd.Flags().BoolVar(&syncDelete, "delete-orphans", false, "remove managed files on the device that are no longer in the library")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(syncCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
