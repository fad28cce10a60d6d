package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/joshuapare/tralloc/heap"
	"github.com/joshuapare/tralloc/heap/alloc"
)

const (
	envPrefix = "TRALLOC"

	keyConfig   = "config"
	keyLogLevel = "log-level"
	keyCapacity = "capacity"
	keyJSON     = "json"
)

// rootConfig holds the persistent flags shared by every subcommand.
type rootConfig struct {
	CfgFile  string
	LogLevel string
	Capacity string
	JSON     bool

	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	cfg := &rootConfig{}
	cmd := &cobra.Command{
		Use:   "trallocctl",
		Short: "Replay allocation workloads and inspect heap snapshots",
		Long: `trallocctl drives the tralloc tree allocator from YAML workloads and
inspects the heap snapshots it produces: audit dumps, invariant checks,
statistics and a bbolt-backed snapshot archive.

Every flag can also be set through a TRALLOC_ environment variable
(e.g. TRALLOC_LOG_LEVEL=debug) or a config file given with --config.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.initialize(cmd); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&cfg.CfgFile, keyConfig, "", "Config file (yaml, json or toml)")
	pf.StringVar(&cfg.LogLevel, keyLogLevel, "warn", "Log level: debug, info, warn or error")
	pf.StringVar(&cfg.Capacity, keyCapacity, "1GiB", "Maximum heap size, e.g. 64MiB")
	pf.BoolVar(&cfg.JSON, keyJSON, false, "Output in JSON format")

	cmd.AddCommand(
		newRunCmd(cfg),
		newAuditCmd(cfg),
		newVerifyCmd(cfg),
		newStatsCmd(cfg),
		newArchiveCmd(cfg),
		newVersionCmd(),
	)
	return cmd
}

func execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// initialize reads the config file and environment, then builds the logger.
func (cfg *rootConfig) initialize(cmd *cobra.Command) error {
	v := viper.New()
	if cfg.CfgFile != "" {
		v.SetConfigFile(cfg.CfgFile)
		if err := v.ReadInConfig(); err != nil {
			return err
		}
	}

	// A flag like --log-level binds to TRALLOC_LOG_LEVEL.
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	if err := bindFlags(cmd, v); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	logger, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	if err != nil {
		return err
	}
	cfg.logger = logger
	return nil
}

// bindFlags applies config file and environment values to flags the user
// did not set on the command line.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var errs []error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Name == keyConfig {
			return
		}
		if strings.Contains(f.Name, "-") {
			envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			if err := v.BindEnv(f.Name, fmt.Sprintf("%s_%s", envPrefix, envVarSuffix)); err != nil {
				errs = append(errs, fmt.Errorf("binding env to flag %q: %w", f.Name, err))
				return
			}
		}
		if !f.Changed && v.IsSet(f.Name) {
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); err != nil {
				errs = append(errs, fmt.Errorf("setting flag %q value: %w", f.Name, err))
			}
		}
	})
	return errors.Join(errs...)
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

func (cfg *rootConfig) capacity() (int, error) {
	n, err := heap.ParseCapacity(cfg.Capacity)
	if err != nil {
		return 0, fmt.Errorf("--%s: %w", keyCapacity, err)
	}
	return n, nil
}

func (cfg *rootConfig) allocOptions() *alloc.Options {
	return &alloc.Options{TrackLive: true, Logger: cfg.logger}
}
