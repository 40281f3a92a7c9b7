package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lemonscanner/lemon-scanner/cmd/aggregate"
	"github.com/lemonscanner/lemon-scanner/cmd/config"
	"github.com/lemonscanner/lemon-scanner/cmd/load"
	"github.com/lemonscanner/lemon-scanner/cmd/serve"
	"github.com/lemonscanner/lemon-scanner/cmd/version"
	"github.com/lemonscanner/lemon-scanner/internal/app"
	"github.com/lemonscanner/lemon-scanner/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(ctx *app.Context) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "lemonscan",
		Short:         "Vehicle recall aggregation and catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, &configFile); err != nil {
		cobra.CheckErr(err)
	}

	versionCmd := version.Command(ctx)
	configCmd := config.Command()

	rootCmd.AddCommand(
		aggregate.Command(ctx),
		load.Command(ctx),
		serve.Command(ctx),
		versionCmd,
		configCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Skip setup for commands that need no configuration
		if cmd.Name() == versionCmd.Name() || cmd.Name() == configCmd.Name() {
			return nil
		}
		return initialize(ctx, configFile)
	}

	return rootCmd
}

// initialize loads settings, with flags taking precedence over the file and
// environment, and sets up the shared services.
func initialize(ctx *app.Context, configFile string) error {
	settings, err := conf.Load(configFile)
	if err != nil {
		return err
	}
	return ctx.Setup(settings)
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, configFile *string) error {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(configFile, "config", "c", "", "Path to config.yaml (default: ./, ~/.config/lemonscan, /etc/lemonscan)")
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.String("db-driver", conf.DriverSQLite, "Database driver: sqlite, mysql or postgres")
	flags.String("encoding", conf.EncodingAuto, "CSV input encoding: auto, utf-8 or cp949")

	return bindFlags(rootCmd, map[string]string{
		"debug":           "debug",
		"database.driver": "db-driver",
		"input.encoding":  "encoding",
	})
}

// bindFlags binds persistent flags to viper keys.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for key, name := range keys {
		if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(name)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}
	return nil
}
