package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/openmined/themesync/internal/blob"
	"github.com/openmined/themesync/internal/config"
	"github.com/openmined/themesync/internal/localfs"
	"github.com/openmined/themesync/internal/sync"
	"github.com/openmined/themesync/internal/themesdk"
	"github.com/openmined/themesync/internal/utils"
	"github.com/openmined/themesync/internal/workspace"
	"github.com/spf13/cobra"
)

// app wires a validated config into an engine for one command run.
type app struct {
	config   *config.Config
	engine   *sync.Engine
	closeLog func() error
}

func newApp(cmd *cobra.Command, onResult func(*sync.SyncResult)) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	ws, err := workspace.NewWorkspace(cfg.ThemeDir)
	if err != nil {
		return nil, err
	}
	if err := ws.Setup(); err != nil {
		return nil, err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	closeLog, err := setupLogging(ws.LogsDir, verbose)
	if err != nil {
		return nil, err
	}

	store, err := newStore(cmd, cfg)
	if err != nil {
		_ = closeLog()
		return nil, err
	}

	slog.Debug("config", "path", cfg.Path, "values", cfg.String())

	engine := sync.NewEngine(ws, localfs.New(ws.Root), store, &sync.EngineConfig{
		Ignore:         cfg.Ignore,
		ConfigFileName: cfg.ConfigFileRelPath(),
		DebounceDelay:  cfg.DebounceDelay,
		MaxQueueSize:   cfg.MaxQueueSize,
		BatchSize:      cfg.BatchSize,
		OnResult:       onResult,
	})

	return &app{config: cfg, engine: engine, closeLog: closeLog}, nil
}

func (a *app) Close() {
	if err := a.closeLog(); err != nil {
		slog.Warn("close log file", "error", err)
	}
}

func newStore(cmd *cobra.Command, cfg *config.Config) (sync.RemoteStore, error) {
	switch cfg.Backend {
	case config.BackendS3:
		client, err := blob.NewBlobClientWithS3Config(cmd.Context(), &blob.S3BlobConfig{
			BucketName:   cfg.S3.Bucket,
			Region:       cfg.S3.Region,
			AccessKey:    cfg.S3.AccessKey,
			SecretKey:    cfg.S3.SecretKey,
			Endpoint:     cfg.S3.Endpoint,
			Prefix:       cfg.S3.Prefix,
			MaxAssetSize: cfg.MaxAssetSize,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 store: %w", err)
		}
		slog.Info("remote store", "backend", cfg.Backend, "bucket", cfg.S3.Bucket, "prefix", cfg.S3.Prefix)
		return blob.NewAssetStore(client), nil

	default:
		sdk, err := themesdk.New(&themesdk.Config{
			BaseURL:      cfg.StoreURL,
			ThemeID:      cfg.ThemeID,
			AccessToken:  cfg.AccessToken,
			MaxAssetSize: cfg.MaxAssetSize,
		})
		if err != nil {
			return nil, fmt.Errorf("theme store: %w", err)
		}
		slog.Info("remote store", "backend", cfg.Backend, "url", cfg.StoreURL, "theme", cfg.ThemeID, "token", utils.MaskSecret(cfg.AccessToken))
		return themesdk.NewAssetStore(sdk), nil
	}
}

// printSummary writes the final counts and any failures. A failed result is
// returned as an error so the command exits non-zero.
func printSummary(w io.Writer, op string, result *sync.SyncResult) error {
	fmt.Fprintf(w, "%s %s transferred, %s removed, %s skipped\n",
		cyan(op),
		green(humanize.Comma(int64(result.Transferred))),
		green(humanize.Comma(int64(result.Removed))),
		humanize.Comma(int64(result.Skipped)),
	)
	for _, o := range result.Errors {
		fmt.Fprintf(w, "  %s %s %s: %v\n", red("failed"), o.Op, o.Path, o.Err)
	}
	if result.CompileErr != nil {
		fmt.Fprintf(w, "  %s compile: %v\n", red("failed"), result.CompileErr)
	}

	if result.Failed() {
		return fmt.Errorf("%s finished with %d failed operation(s)", op, len(result.Errors)+boolToInt(result.CompileErr != nil))
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
