package load

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lemonscanner/lemon-scanner/internal/app"
)

// Command creates a new cobra.Command for the load job.
func Command(ctx *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load [workbook.xlsx|file.csv]",
		Short: "Load aggregated recalls into the database",
		Long: `Upsert brands, models and keywords, then write one recall per row and tag
it with the keywords found in its reason. Reloading the same file refreshes
existing recalls instead of duplicating them. Without an argument the
aggregation output path is loaded.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := ctx.Settings.Aggregate.Output
			if len(args) == 1 {
				input = args[0]
			}
			_, err := ctx.Load(cmd.Context(), input)
			return err
		},
	}

	setupFlags(cmd)

	return cmd
}

// setupFlags defines flags specific to the load command.
func setupFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("sheet", nil, "Workbook sheet to load, repeatable (default: every sheet)")

	_ = viper.BindPFlag("load.sheets", cmd.Flags().Lookup("sheet"))
}
