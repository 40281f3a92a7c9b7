package serve

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lemonscanner/lemon-scanner/internal/app"
)

// Command creates a new cobra.Command that serves the catalog API.
func Command(ctx *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the recall catalog and news lookup as a JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.Serve(cmd.Context())
		},
	}

	cmd.Flags().StringP("listen", "l", ":8080", "Listen address")
	_ = viper.BindPFlag("server.listen", cmd.Flags().Lookup("listen"))

	return cmd
}
