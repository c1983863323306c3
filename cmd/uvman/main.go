// uvman drives the uv package manager with bounded retries, bounded
// timeouts, cooperative cancellation, and verified virtual environment
// lifecycles.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"uvman/internal/cache"
	"uvman/internal/config"
	"uvman/internal/logging"
	"uvman/internal/runner"
	"uvman/internal/uvtool"
	"uvman/internal/venv"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Component graph, wired once in PersistentPreRunE.
	cfg      config.Config
	logger   *zap.Logger
	executor *runner.Executor
	tool     *uvtool.Manager
	envs     *venv.Manager
	cacheMgr *cache.Manager

	// ctx is canceled exactly once by the interrupt adapter. Retry loops
	// observe it before each attempt; in-flight commands are never killed
	// by it.
	ctx  context.Context
	stop context.CancelFunc
)

var rootCmd = &cobra.Command{
	Use:   "uvman",
	Short: "Manage uv and Python installations",
	Long: `uvman installs and manages uv, the Python package and runtime manager,
adding retry, timeout, and cancellation guarantees around every external
invocation, and verified lifecycles for virtual environments.

Run without arguments to see install status and available commands.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		cfg.ApplyEnv()

		logger, err = logging.New(cfg.LogFile, verbose)
		if err != nil {
			return fmt.Errorf("initialize logging: %w", err)
		}

		executor = runner.NewExecutor(logger, cfg.CommandTimeout,
			runner.RetryPolicy{Attempts: cfg.MaxRetries, Delay: cfg.RetryDelay})
		tool = uvtool.NewManager(logger, executor, cfg.InstallTimeout)
		envs = venv.NewManager(logger, executor, cfg.InstallTimeout, cfg.ProbeTimeout)
		cacheMgr = cache.NewManager(logger, cfg.CacheDir)

		if err := cacheMgr.EnsureLayout(); err != nil {
			return fmt.Errorf("create cache layout: %w", err)
		}

		ctx, stop = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if stop != nil {
			stop()
		}
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, ok := tool.Version(ctx); ok {
			fmt.Printf("uv is installed (version %s)\n\n", v)
		} else {
			fmt.Println("uv is not installed. Run 'uvman install' to install it.")
			fmt.Println()
		}
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Echo info-level log events to the console")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a uvman config file (YAML)")

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(listPythonCmd)
	rootCmd.AddCommand(installPythonCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(createVenvCmd)
	rootCmd.AddCommand(installDepsCmd)
	rootCmd.AddCommand(installEditableCmd)
	rootCmd.AddCommand(cleanCacheCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "uvman: %v\n", err)
		os.Exit(1)
	}
}
