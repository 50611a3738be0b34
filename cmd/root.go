package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cronjob-trigger/internal/app"
	"cronjob-trigger/internal/config"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates any failure, including invalid configuration.
	ExitCodeError = 1
)

// versionTemplate renders --version the same way as the version subcommand.
const versionTemplate = `{{printf "cronjob-trigger version %s\n" .Version}}`

// loadConfig is replaced in tests.
var loadConfig = config.Load

// rootCmd represents the base command. It watches the configured directory
// until it receives SIGINT or SIGTERM.
var rootCmd = &cobra.Command{
	Use:   "cronjob-trigger",
	Short: "Create a Kubernetes Job from a CronJob when files change",
	Long: `cronjob-trigger watches a directory tree and, once changes to files
matching WATCH_REGEX have settled for DEBOUNCE milliseconds, creates a
Job from the job template of the CronJob named by K8S_CRONJOB.

Configuration is read from the environment, optionally preloaded from
the dotenv file named by ENV_FILE (default: .env if present):

  WATCH_DIR                     directory to watch (required)
  WATCH_REGEX                   pattern selecting relevant paths (required)
  K8S_API_SERVER                Kubernetes API server URL (required)
  K8S_TOKEN                     bearer token (required)
  K8S_NAMESPACE                 namespace of the CronJob (required)
  K8S_CRONJOB                   CronJob name (required)
  DEBOUNCE                      quiet period in milliseconds (default 5000)
  CACHE                         trigger once per path (default true)
  DEBUG                         log every filesystem event (default false)
  WATCH_IGNORE_INITIAL          ignore files present at startup (default false)
  K8S_CA_FILE                   CA bundle for the API server
  K8S_INSECURE_SKIP_TLS_VERIFY  skip TLS verification (default false)
  LOG_FORMAT                    text or json (default text)`,
	Args: cobra.NoArgs,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
	RunE:         runRoot,
}

func runRoot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return application.Run(ctx)
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	// SetVersionTemplate defines a custom template for displaying the version.
	// This is used when the --version flag is invoked.
	rootCmd.SetVersionTemplate(versionTemplate)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitCodeError)
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
}
