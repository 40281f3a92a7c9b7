package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lemonscanner/lemon-scanner/internal/app"
)

// Command prints build information.
func Command(ctx *app.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), ctx.Build.String())
			return err
		},
	}
}
