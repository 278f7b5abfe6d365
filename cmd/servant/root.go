package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	servant "github.com/axondata/go-servant"
	"github.com/axondata/go-servant/internal/config"
	"github.com/axondata/go-servant/internal/logging"
)

var (
	cfgFile string
	cfg     config.Config
	logger  = zap.NewNop()
	initErr error
)

var rootCmd = &cobra.Command{
	Use:   "servant [name port]",
	Short: "Supervise singleton named worker processes",
	Long: `servant spawns, discovers and stops worker processes on this host.
Workers are found by the THEREISASERVANT environment tag they carry.

Run with a service name and port, servant serves that service as a worker.`,
	Version:           servant.Version,
	Args:              cobra.MaximumNArgs(2),
	PersistentPreRunE: setup,
	RunE:              runRoot,
	SilenceUsage:      true,
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.config/servant/config.yaml)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-file", "", "also log to this file, rotated by size")
	pf.String("log-dir", "", "directory for worker stdout and stderr files")
	pf.String("run-dir", "", "directory for worker records, enables watch")
	pf.Duration("ready-timeout", 0, "time budget for a spawned worker to become healthy")
	pf.Duration("poll-interval", 0, "interval between readiness and termination probes")
	pf.Bool("strict", false, "fail create when a worker does not become healthy in time")
	pf.StringSlice("env-file", nil, "TOML file or file:// URL with variables for spawned workers (repeatable)")
	pf.Int("concurrency", 0, "maximum concurrent operations for bulk commands")

	for key, flag := range map[string]string{
		"log.level":     "log-level",
		"log.file":      "log-file",
		"log_dir":       "log-dir",
		"run_dir":       "run-dir",
		"ready_timeout": "ready-timeout",
		"poll_interval": "poll-interval",
		"strict":        "strict",
		"env_files":     "env-file",
		"concurrency":   "concurrency",
	} {
		_ = viper.BindPFlag(key, pf.Lookup(flag))
	}
}

func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, _ := os.UserHomeDir()
		viper.AddConfigPath(filepath.Join(home, ".config", "servant"))
		viper.SetConfigName("config")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			initErr = fmt.Errorf("reading config: %w", err)
		}
	}
}

// setup loads the settings and builds the logger before any command runs
func setup(cmd *cobra.Command, _ []string) error {
	if initErr != nil {
		return initErr
	}
	loaded, err := config.Load(viper.GetViper())
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg = loaded

	l, err := logging.New(logging.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return err
	}
	logger = l
	return nil
}

func runRoot(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	return runWorker(args)
}

// supervisorOptions translates the settings into Supervisor options
func supervisorOptions() ([]servant.Option, error) {
	opts := []servant.Option{
		servant.WithLogDir(cfg.LogDir),
		servant.WithReadyTimeout(cfg.ReadyTimeout),
		servant.WithPollInterval(cfg.PollInterval),
		servant.WithStrictReady(cfg.Strict),
		servant.WithLogger(logger),
	}

	if len(cfg.EnvFiles) > 0 {
		gens := servant.NewEnvRegistry()
		for i, source := range cfg.EnvFiles {
			gen, err := servant.NewEnvGenerator(source)
			if err != nil {
				return nil, err
			}
			// keep file order: later files override earlier ones
			gens.Register(fmt.Sprintf("%03d %s", i, source), gen)
		}
		opts = append(opts, servant.WithEnvGenerator(gens))
	}

	if cfg.RunDir != "" {
		dir, err := openRunDir()
		if err != nil {
			return nil, err
		}
		opts = append(opts, servant.WithRunDir(dir))
	}
	return opts, nil
}

func openRunDir() (*servant.RunDir, error) {
	if cfg.RunDir == "" {
		return nil, errors.New("no run directory configured, use --run-dir")
	}
	return servant.NewRunDir(cfg.RunDir, servant.WithRunDirLogger(logger))
}

func newManager(opts []servant.Option) *servant.Manager {
	return servant.NewManager(
		servant.WithConcurrency(cfg.Concurrency),
		servant.WithSupervisorOptions(opts...),
	)
}

// terminateTimeout bounds how long a command waits for workers to exit
const terminateTimeout = time.Minute

// Execute runs the root command
func Execute() error {
	defer func() { _ = logger.Sync() }()
	return rootCmd.Execute()
}
