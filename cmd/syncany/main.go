package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/syncany/syncany-go/internal/config"
	"github.com/syncany/syncany-go/internal/logging"
	"github.com/syncany/syncany-go/internal/version"
)

const (
	configFileName = "config"
	envPrefix      = "SYNCANY"

	// commands annotated with this key log at the given level instead of warn
	annotationLogLevel = "syncany/log-level"
)

var logCloser io.Closer

var rootCmd = &cobra.Command{
	Use:     "syncany",
	Short:   "Syncany history client",
	Version: version.Detailed(),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "Syncany config file")
	rootCmd.PersistentFlags().String("client-url", config.DefaultClientURL, "Daemon control plane URL")
	rootCmd.PersistentFlags().String("client-token", "", "Daemon control plane token")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}

func main() {
	// a missing .env is fine
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if logCloser != nil {
		logCloser.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}

func setupLogging(cmd *cobra.Command) error {
	level := slog.LevelWarn
	if cmd.Annotations[annotationLogLevel] == "info" {
		level = slog.LevelInfo
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = slog.LevelDebug
	}

	closer, err := logging.Setup(logging.Options{
		File:   config.DefaultLogFilePath,
		Level:  level,
		Stdout: os.Stderr,
	})
	if err != nil {
		return err
	}
	logCloser = closer
	return nil
}

// loadConfig merges the config file, SYNCANY_* variables and flags, in
// increasing order of precedence.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()

	if f := cmd.Flag("config"); f != nil && f.Changed {
		v.SetConfigFile(f.Value.String())
	} else if envPath := os.Getenv(envPrefix + "_CONFIG_PATH"); envPath != "" {
		v.SetConfigFile(envPath)
	} else {
		v.AddConfigPath(config.DefaultConfigDir)
		v.SetConfigName(configFileName)
	}
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, ok := err.(viper.ConfigFileNotFoundError)
		if !enoent && !ok {
			return nil, fmt.Errorf("config read '%s': %w", v.ConfigFileUsed(), err)
		}
	}

	v.SetDefault("data_dir", config.DefaultDataDir)
	v.BindPFlag("client_url", cmd.Flag("client-url"))
	v.BindPFlag("client_token", cmd.Flag("client-token"))

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	cfg := &config.Config{
		Path:        v.ConfigFileUsed(),
		DataDir:     v.GetString("data_dir"),
		ClientURL:   v.GetString("client_url"),
		ClientToken: v.GetString("client_token"),
		LogWindow: config.LogWindow{
			MaxVersions:        v.GetInt("log_window.max_versions"),
			MaxFilesPerVersion: v.GetInt("log_window.max_files"),
		},
	}
	if err := v.UnmarshalKey("watches", &cfg.Watches); err != nil {
		return nil, fmt.Errorf("config watches: %w", err)
	}
	if cfg.Path == "" {
		cfg.Path = config.DefaultConfigPath
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
