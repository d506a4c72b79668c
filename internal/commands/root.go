package commands

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/accountbook/backend/internal/config"
	"github.com/accountbook/backend/internal/logger"
)

// Version will be set via ldflags during build.
var Version = "dev"

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:     "ledgerd",
		Short:   "Account book ledger service",
		Version: Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(envFile)
		},
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with DATABASE_*, REDIS_*, LEDGER_* and LOG_* settings")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newShowCommand())

	return rootCmd
}

// initConfig loads the dotenv file into the environment, binds it to viper
// and sets up logging. A missing file is not an error.
func initConfig(envFile string) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", envFile, err)
	}
	config.BindEnv()

	if err := logger.Setup(logger.ConfigFromViper()); err != nil {
		return fmt.Errorf("setting up logger: %w", err)
	}
	return nil
}
