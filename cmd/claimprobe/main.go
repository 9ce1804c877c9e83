package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"claimprobe/internal/config"
	"claimprobe/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	configPath string
	envName    string
	verbose    bool
	tokenFlag  string
	userFlag   string
	passFlag   string
	outputDir  string
	jobAPIFlag string

	// Resolved configuration for the running command
	cfg *config.Config

	// Logger
	logger *zap.Logger
)

// errProbeFailed is returned when at least one scenario of a probe failed.
// The findings have already been printed.
var errProbeFailed = errors.New("probe reported failures")

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "claimprobe",
	Short: "Diagnostic probes for the claims backend",
	Long: `claimprobe runs manual diagnostic probes against the claims API:
authentication, claim search, status filtering, and bulk CSV upload.

Each probe authenticates, calls the backend, and prints what it found.
Some probes write CSV or JSON artifacts for later manual reuse.

Exit status is 0 when every scenario passed and 1 otherwise.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = loaded

		if err := logging.Initialize(cfg.Output.Dir, cfg.Logging); err != nil {
			return fmt.Errorf("failed to initialize category logs: %w", err)
		}

		// Initialize logger
		zapCfg := zap.NewProductionConfig()
		zapCfg.Level = zap.NewAtomicLevelAt(rootLevel(cfg.Logging.Level))
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger.Debug("configuration resolved",
			zap.String("command", cmd.Name()),
			zap.String("environment", cfg.Environment),
			zap.String("job_api", cfg.Bulk.JobAPI))
		logging.Boot("command %s, environment %s", cmd.Name(), cfg.Environment)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		shutdown()
	},
}

// shutdown flushes the root logger and closes the category log files. It is
// safe to call more than once.
func shutdown() {
	if logger != nil {
		_ = logger.Sync()
	}
	logging.CloseAll()
}

func rootLevel(s string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return zapcore.WarnLevel
	}
	return lvl
}

// loadConfig reads the config file and applies global flag overrides.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	c, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if envName != "" {
		c.Environment = envName
	}
	if tokenFlag != "" {
		c.Token = tokenFlag
	}
	if userFlag != "" {
		c.Username = userFlag
	}
	if passFlag != "" {
		c.Password = passFlag
	}
	if outputDir != "" {
		c.Output.Dir = outputDir
	}
	if jobAPIFlag != "" {
		c.Bulk.JobAPI = jobAPIFlag
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, nil
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: .claimprobe/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&envName, "env", "e", "", "Environment to probe (production, preprod, ...)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "Bearer token copied from a browser session (or set CLAIMPROBE_TOKEN)")
	rootCmd.PersistentFlags().StringVarP(&userFlag, "username", "u", "", "Login username (or set CLAIMPROBE_USERNAME)")
	rootCmd.PersistentFlags().StringVarP(&passFlag, "password", "p", "", "Login password (or set CLAIMPROBE_PASSWORD)")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "Directory for artifacts and logs (default: .)")
	rootCmd.PersistentFlags().StringVar(&jobAPIFlag, "job-api", "", "Bulk job endpoints: csv-jobs or bulk-jobs")

	// Register commands
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(scenariosCmd)
	rootCmd.AddCommand(statusFilterCmd)
	rootCmd.AddCommand(findClaimCmd)
	rootCmd.AddCommand(harvestCmd)
	rootCmd.AddCommand(batchCheckCmd)
	rootCmd.AddCommand(buildCSVCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(bulkCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(practicesCmd)
	rootCmd.AddCommand(templatesCmd)
	rootCmd.AddCommand(inspectExportCmd)
}

func main() {
	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code := run(ctx)
	stop()
	if code != 0 {
		os.Exit(code)
	}
}

// run executes the root command and returns the exit status.
func run(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	// PersistentPostRun does not run when RunE fails.
	shutdown()
	if err == nil {
		return 0
	}
	if !errors.Is(err, errProbeFailed) {
		fmt.Fprintln(os.Stderr, err)
	}
	return 1
}
