package app

import (
	"fmt"

	"github.com/pinmap/pinstate/internal/config"
	"github.com/pinmap/pinstate/internal/geo"
	"github.com/spf13/cobra"
)

func newOverlapCmd() *cobra.Command {
	var zoom float64
	cmd := &cobra.Command{
		Use:   "overlap <lat,lng> <lat,lng>",
		Short: "Report whether two points would be spiderfied together",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cmd.Flags().GetString("config-dir")
			if err != nil {
				return err
			}
			// defaults are enough when there is no config file
			_ = config.Load(dir)
			sc := spiderConfig(config.GetSpiderConfig())
			if zoom > 0 {
				sc.Zoom = zoom
			}

			a, err := geo.PositionFromString(args[0])
			if err != nil {
				return fmt.Errorf("first point: %w", err)
			}
			b, err := geo.PositionFromString(args[1])
			if err != nil {
				return fmt.Errorf("second point: %w", err)
			}

			d := geo.PixelDistance(a, b, sc.Zoom)
			fmt.Fprintf(cmd.OutOrStdout(), "distance: %.2fpx at zoom %g\n", d, sc.Zoom)
			fmt.Fprintf(cmd.OutOrStdout(), "overlap: %t (nearby distance %gpx)\n", d < sc.NearbyDistance, sc.NearbyDistance)
			return nil
		},
	}
	cmd.Flags().Float64Var(&zoom, "zoom", 0, "Zoom level, defaults to the configured spider zoom")
	return cmd
}
