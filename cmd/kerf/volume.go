package main

import (
	"fmt"

	"github.com/chazu/kerf/pkg/kernel"
	"github.com/spf13/cobra"
)

func newVolumeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "volume <mesh.json>",
		Short: "Print the volume of a closed mesh",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := readMesh(args[0])
			if err != nil {
				return err
			}
			vol, err := kernel.MeasureClosed(m)
			if err != nil {
				if open := kernel.BoundaryEdges(m); len(open) > 0 {
					c.logger.Warn("mesh is open", "path", args[0], "boundary_edges", len(open))
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.9g\n", vol)
			return nil
		},
	}
}
