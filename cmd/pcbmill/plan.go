package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mastercactapus/pcbmill/coord"
	"github.com/mastercactapus/pcbmill/gcode"
	"github.com/mastercactapus/pcbmill/machine/tinyg"
	"github.com/mastercactapus/pcbmill/meshlevel"
	"github.com/spf13/cobra"
)

func newPlanCmd(g *globalOpts) *cobra.Command {
	var (
		output string
		mirror bool
	)

	cmd := &cobra.Command{
		Use:   "plan [board.json]",
		Short: "Print the g-code of a board without connecting to the machine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := g.loadWorkpiece(args[0], mirror)
			if err != nil {
				return err
			}

			p := tinyg.NewPlanner(g.cfg.Machine)
			err = w.Plan(p)
			if err != nil {
				return err
			}

			var r gcode.Reader = &gcode.BlocksReader{Blocks: p.Blocks()}
			if lv := g.cfg.Leveling; lv.ProbeFile != "" {
				mesh, err := meshlevel.LoadMesh(lv.ProbeFile, lv.ReferenceZ)
				if err != nil {
					return fmt.Errorf("leveling: %w", err)
				}
				r = meshlevel.New(meshlevel.Config{
					ZOffsetter:  mesh,
					Granularity: lv.Granularity,
					Start:       coord.Point{},
					Reader:      r,
				})
			}

			out := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			n, err := io.Copy(out, gcode.NewBuffer(r))
			if err != nil {
				return fmt.Errorf("write g-code: %w", err)
			}
			g.log.Info("planned board", "holes", w.Holes.Len(), "millings", w.Millings.Len(), "bytes", n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write g-code to file instead of stdout")
	cmd.Flags().BoolVar(&mirror, "mirror", false, "mirror the board to machine the bottom side")
	return cmd
}
