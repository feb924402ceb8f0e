package cli

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rshade/stagehand/internal/config"
	"github.com/rshade/stagehand/internal/logging"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// isWriterTerminal reports whether w is a terminal. Anything that is not an
// *os.File, such as a test buffer, is not.
func isWriterTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isTerminal(f)
	}
	return false
}

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// NewRootCmd creates the root Cobra command for the stagehand CLI.
func NewRootCmd(ver string) *cobra.Command {
	var logResult *logging.LogPathResult

	cmd := &cobra.Command{
		Use:           "stagehand",
		Short:         "Stagehand backend: scaffolder actions and search collators",
		Long:          "Stagehand runs catalog scaffolder actions and collates TechDocs into a search index.",
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")
			if err := config.LoadDotEnv(envFile); err != nil {
				return err
			}
			if err := loadConfig(cmd); err != nil {
				return err
			}
			result := setupLogging(cmd)
			logResult = &result
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return cleanupLogging(logResult)
		},
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().String("config", "", "path to the app-config YAML (default ~/.stagehand/config.yaml)")
	cmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before configuration")
	cmd.AddCommand(newActionsCmd(), newCollateCmd(), NewServeCmd())

	return cmd
}

// loadConfig installs the configuration named by --config, or the default
// one, as the global configuration.
func loadConfig(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		cfg := config.New()
		if err := cfg.Validate(); err != nil {
			return err
		}
		config.SetGlobalConfig(cfg)
		return nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	config.SetGlobalConfig(cfg)
	return nil
}

const rootCmdExample = `  # List the registered scaffolder actions
  stagehand actions list

  # Fetch catalog entities for a batch of references
  stagehand actions run catalog:fetch --input values.yaml

  # Collate TechDocs once into an S3 bucket
  stagehand collate techdocs --sink s3

  # Run the backend with scheduled collation, metrics and health checks
  stagehand serve --metrics-addr :9464 --grpc-addr :9465`
