package aggregate

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lemonscanner/lemon-scanner/internal/app"
)

// Command creates a new cobra.Command for the aggregation job.
func Command(ctx *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate [input.csv|input.xlsx]",
		Short: "Aggregate raw recall rows into a workbook with one sheet per manufacturer",
		Long: `Filter, normalize and group raw recall rows by manufacturer, model, reason
and recall year, then write the totals to an xlsx workbook with one sheet per
manufacturer. Nothing is written when the input cannot be read.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.Aggregate(cmd.Context(), args[0], ctx.Settings.Aggregate.Output)
			return err
		},
	}

	setupFlags(cmd)

	return cmd
}

// setupFlags defines flags specific to the aggregate command.
func setupFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "recall_by_brand.xlsx", "Path to the output workbook")
	cmd.Flags().Int("sheet-name-length", 30, "Maximum length of a sheet name")

	_ = viper.BindPFlag("aggregate.output", cmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("aggregate.sheetnamelength", cmd.Flags().Lookup("sheet-name-length"))
}
