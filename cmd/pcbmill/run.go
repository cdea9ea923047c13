package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/mastercactapus/pcbmill/machine"
	"github.com/mastercactapus/pcbmill/machine/tinyg"
	"github.com/spf13/cobra"
)

func newRunCmd(g *globalOpts) *cobra.Command {
	var home, mirror bool

	cmd := &cobra.Command{
		Use:   "run [board.json]",
		Short: "Mill a board and wait for the cycle to complete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w, err := g.loadWorkpiece(args[0], mirror)
			if err != nil {
				return err
			}

			tg, finalize, err := g.openMachine(ctx)
			if err != nil {
				return err
			}
			defer finalize()

			if home {
				g.log.Info("homing")
				err = tg.HomingCycle(ctx)
				if err != nil {
					return err
				}
			}

			err = w.Plan(tg)
			if err != nil {
				return err
			}
			id, err := tg.ExecuteCycle(ctx)
			if err != nil {
				return err
			}
			return waitCycle(ctx, g.log, tg, id)
		},
	}

	cmd.Flags().BoolVar(&home, "home", false, "run the homing cycle before milling")
	cmd.Flags().BoolVar(&mirror, "mirror", false, "mirror the board to machine the bottom side")
	return cmd
}

type cycleRunner interface {
	Events() <-chan tinyg.Event
	Stop() error
}

// waitCycle blocks until cycle id completed. When ctx is cancelled the
// machine is stopped.
func waitCycle(ctx context.Context, l *log.Logger, m cycleRunner, id string) error {
	for {
		select {
		case <-ctx.Done():
			l.Warn("interrupted, stopping machine")
			if err := m.Stop(); err != nil {
				l.Error("stop", "err", err)
			}
			return ctx.Err()
		case ev := <-m.Events():
			switch ev.Kind {
			case tinyg.EventStatus:
				l.Debug("status", "report", ev.Status)
			case tinyg.EventCycle:
				if ev.Cycle.ID != id {
					continue
				}
				l.Info("cycle", "id", id, "state", ev.Cycle.State)
				switch ev.Cycle.State {
				case machine.StateCompleted:
					return nil
				case machine.StateInitialized:
					return fmt.Errorf("cycle %s aborted", id)
				}
			}
		}
	}
}
