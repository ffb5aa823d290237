package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/openmined/themesync/internal/config"
	"github.com/openmined/themesync/internal/utils"
	"github.com/openmined/themesync/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

const logFileName = "themesync.log"

var (
	home, _          = os.UserHomeDir()
	defaultConfigDir = filepath.Join(home, ".config", "themesync")
)

var (
	red   = color.New(color.FgHiRed, color.Bold).SprintFunc()
	green = color.New(color.FgHiGreen).SprintFunc()
	cyan  = color.New(color.FgHiCyan).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:           "themesync",
	Short:         "Sync a local theme directory with a remote theme store",
	Version:       version.Detailed(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	addPersistentFlags(rootCmd)
}

func addPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP("config", "c", "", "config file (default themesync.yaml in the working directory or "+defaultConfigDir+")")
	cmd.PersistentFlags().StringP("theme-dir", "d", "", "theme directory")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
}

func main() {
	slog.SetDefault(slog.New(newStdoutHandler(slog.LevelInfo)))

	// Setup root context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, red("Error:"), err)
		stop()
		os.Exit(1)
	}
}

func newStdoutHandler(level slog.Level) slog.Handler {
	return tint.NewHandler(os.Stdout, &tint.Options{
		Level:      level,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})
}

// setupLogging logs to stdout and to a rotating file under logsDir. The
// returned func flushes and closes the file.
func setupLogging(logsDir string, verbose bool) (func() error, error) {
	if err := utils.EnsureDir(logsDir); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	logFile := &lumberjack.Logger{
		Filename:   filepath.Join(logsDir, logFileName),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	logInterceptor := utils.NewLogInterceptor(logFile)
	fileHandler := slog.NewTextHandler(logInterceptor, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		// Do not include time as it is added by the log interceptor.
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})

	slog.SetDefault(slog.New(utils.NewMultiLogHandler(newStdoutHandler(level), fileHandler)))
	return func() error {
		return errors.Join(logInterceptor.Close(), logFile.Close())
	}, nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()
	config.SetDefaults(v)

	// config path
	if f := cmd.Flag("config"); f != nil && f.Changed {
		v.SetConfigFile(f.Value.String())
	} else {
		v.AddConfigPath(".")              // First check the working directory
		v.AddConfigPath(defaultConfigDir) // Then check .config/themesync
		v.SetConfigName(config.ConfigName)
	}

	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, ok := err.(viper.ConfigFileNotFoundError)
		if !enoent && !ok {
			return nil, fmt.Errorf("config read '%s': %w", v.ConfigFileUsed(), err)
		}
	}

	// Bind flags to viper
	if f := cmd.Flag("theme-dir"); f != nil {
		_ = v.BindPFlag("theme_dir", f)
	}

	// Set up environment variables
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
