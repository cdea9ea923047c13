package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/mastercactapus/pcbmill/board"
	"github.com/mastercactapus/pcbmill/config"
	"github.com/mastercactapus/pcbmill/machine"
	"github.com/mastercactapus/pcbmill/machine/tinyg"
	"github.com/mastercactapus/pcbmill/spjs"
	"github.com/spf13/cobra"
)

// globalOpts holds the persistent flags and the configuration they load.
type globalOpts struct {
	configPath string
	port       string
	spjsURL    string
	verbose    bool

	cfg config.Config
	log *log.Logger
}

func newRootCmd() *cobra.Command {
	g := &globalOpts{}

	root := &cobra.Command{
		Use:          "pcbmill",
		Short:        "Mill and drill printed circuit boards on a TinyG CNC",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := log.InfoLevel
			if g.verbose {
				level = log.DebugLevel
			}
			g.log = newLogger(cmd.ErrOrStderr(), level)
			cmd.SetContext(withLogger(cmd.Context(), g.log))

			cfg, err := config.Load(g.configPath)
			if err != nil {
				return err
			}
			if g.port != "" {
				cfg.Com.Port = g.port
			}
			if g.spjsURL != "" {
				cfg.Com.SPJS = g.spjsURL
			}
			g.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "TOML configuration file")
	root.PersistentFlags().StringVarP(&g.port, "port", "p", "", "serial port (or port name on the SPJS server)")
	root.PersistentFlags().StringVar(&g.spjsURL, "spjs", "", "websocket URL of a serial-port-json-server to connect through")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newPlanCmd(g))
	root.AddCommand(newRunCmd(g))
	root.AddCommand(newProbeCmd(g))
	root.AddCommand(newServeCmd(g))

	return root
}

// loadWorkpiece imports and optimizes a board description file.
func (g *globalOpts) loadWorkpiece(path string, mirror bool) (*board.Workpiece, error) {
	d, err := board.LoadDescription(path)
	if err != nil {
		return nil, err
	}
	return g.workpiece(d, mirror)
}

func (g *globalOpts) workpiece(d *board.Description, mirror bool) (*board.Workpiece, error) {
	w, err := board.Import(d, g.cfg.OptimizerSet(g.log))
	if err != nil {
		return nil, fmt.Errorf("import board: %w", err)
	}
	if mirror {
		w.Mirror()
	}
	err = w.Optimize()
	if err != nil {
		return nil, err
	}
	return w, nil
}

// adapter returns the transport selected by the com settings and a func
// releasing it.
func (g *globalOpts) adapter() (machine.Adapter, func()) {
	com := g.cfg.Com
	if com.SPJS == "" {
		g.log.Info("using serial port", "port", com.Port, "baud", com.Baud)
		return tinyg.SerialAdapter(com.Port, com.Baud), func() {}
	}

	g.log.Info("using serial-port-json-server", "url", com.SPJS, "port", com.Port)
	client := spjs.New(spjs.Config{URL: com.SPJS, Logger: g.log})
	return spjs.Adapter(client, com.Port, com.Baud), func() { client.Close() }
}

// openMachine connects and initializes the TinyG. The returned func
// finalizes it.
func (g *globalOpts) openMachine(ctx context.Context) (*tinyg.TinyG, func(), error) {
	tcfg, err := g.cfg.TinyGConfig(g.log)
	if err != nil {
		return nil, nil, err
	}
	a, release := g.adapter()
	tg := tinyg.New(a, tcfg)
	err = tg.Initialize(ctx)
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("initialize TinyG: %w", err)
	}

	return tg, func() {
		if err := tg.Finalize(); err != nil {
			g.log.Error("finalize TinyG", "err", err)
		}
		release()
	}, nil
}
