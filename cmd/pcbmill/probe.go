package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mastercactapus/pcbmill/config"
	"github.com/mastercactapus/pcbmill/coord"
	"github.com/mastercactapus/pcbmill/machine"
	"github.com/spf13/cobra"
)

func newProbeCmd(g *globalOpts) *cobra.Command {
	var width, height float64
	var output string

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Probe the workpiece surface from the current position and write the leveling points",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if output == "" {
				output = g.cfg.Leveling.ProbeFile
			}
			if output == "" {
				return errors.New("no output file, set --output or leveling.probe_file")
			}
			// the file is being replaced, do not level with the old one
			g.cfg.Leveling.ProbeFile = ""

			tg, finalize, err := g.openMachine(ctx)
			if err != nil {
				return err
			}
			defer finalize()

			points, err := probeSurface(ctx, tg, g.cfg.Leveling, width, height)
			if err != nil {
				return err
			}
			err = writeProbes(output, points)
			if err != nil {
				return err
			}
			g.log.Info("probe points written", "file", output, "count", len(points))
			return nil
		},
	}

	cmd.Flags().Float64Var(&width, "width", 0, "probed width in mm")
	cmd.Flags().Float64Var(&height, "height", 0, "probed height in mm")
	cmd.Flags().StringVarP(&output, "output", "o", "", "probe file to write (default leveling.probe_file)")
	return cmd
}

// probeSurface probes width by height from the current position and
// returns the points in workpiece coordinates.
func probeSurface(ctx context.Context, m machine.Machine, lv config.Leveling, width, height float64) ([]coord.Point, error) {
	abs, err := m.Position(true)
	if err != nil {
		return nil, err
	}
	wp, err := m.Position(false)
	if err != nil {
		return nil, err
	}
	offset := abs.Sub(wp)

	points, err := machine.ProbeGrid(ctx, m, lv.ProbeGrid(width, height))
	if err != nil {
		return nil, fmt.Errorf("probe grid: %w", err)
	}
	for i, p := range points {
		points[i] = p.Sub(offset)
	}
	return points, nil
}

func writeProbes(path string, points []coord.Point) error {
	data, err := json.MarshalIndent(points, "", "\t")
	if err != nil {
		return err
	}
	err = os.WriteFile(path, append(data, '\n'), 0o644)
	if err != nil {
		return fmt.Errorf("write probe file: %w", err)
	}
	return nil
}
