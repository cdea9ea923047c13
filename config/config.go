// Package config loads the pcbmill TOML configuration file.
package config

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/mastercactapus/pcbmill/machine"
	"github.com/mastercactapus/pcbmill/machine/tinyg"
	"github.com/mastercactapus/pcbmill/meshlevel"
	"github.com/mastercactapus/pcbmill/optimize"
)

type Config struct {
	Machine    machine.Params `toml:"machine"`
	Com        Com            `toml:"com"`
	TinyG      TinyG          `toml:"tinyg"`
	Optimizers Optimizers     `toml:"optimizers"`
	Leveling   Leveling       `toml:"leveling"`
	Server     Server         `toml:"server"`
}

// Com selects the connection to the controller. With SPJS set, Port
// names a port of that serial-port-json-server instead of a local device.
type Com struct {
	Port        string            `toml:"port"`
	Baud        int               `toml:"baud"`
	FlowControl tinyg.FlowControl `toml:"flow_control"`
	Timeout     time.Duration     `toml:"timeout"`
	SPJS        string            `toml:"spjs"`
}

type TinyG struct {
	StatusInterval time.Duration      `toml:"status_interval"`
	MaxLines       int                `toml:"max_lines"`
	Settings       map[string]float64 `toml:"settings"`
}

// Optimizers holds one table per optimizer. Missing keys keep their
// defaults.
type Optimizers struct {
	HoleOrder          optimize.HoleOrder          `toml:"hole_order"`
	MillingCombination optimize.MillingCombination `toml:"milling_combination"`
	Breakout           optimize.Breakout           `toml:"breakout"`
	MillingOrder       optimize.MillingOrder       `toml:"milling_order"`
}

// Leveling enables surface leveling when ProbeFile is set.
type Leveling struct {
	ProbeFile string `toml:"probe_file"`

	// ReferenceZ is the probed height that maps to no offset.
	ReferenceZ  float64 `toml:"reference_z"`
	Granularity float64 `toml:"granularity"`

	// ProbeFeedRate and ProbeMaxTravel configure the grid probe that
	// writes ProbeFile.
	ProbeFeedRate  float64 `toml:"probe_feed_rate"`
	ProbeMaxTravel float64 `toml:"probe_max_travel"`
}

type Server struct {
	Addr string `toml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	set := optimize.DefaultSet()
	return Config{
		Machine: machine.DefaultParams(),
		Com: Com{
			Port:    "/dev/ttyUSB0",
			Baud:    tinyg.DefaultBaud,
			Timeout: tinyg.DefaultQueryTimeout,
		},
		TinyG: TinyG{
			StatusInterval: tinyg.DefaultStatusInterval,
			MaxLines:       tinyg.DefaultMaxLines,
		},
		Optimizers: Optimizers{
			HoleOrder:          *set.HoleOrder,
			MillingCombination: *set.MillingCombination,
			Breakout:           *set.Breakout,
			MillingOrder:       *set.MillingOrder,
		},
		Leveling: Leveling{Granularity: 5, ProbeFeedRate: 50, ProbeMaxTravel: 10},
		Server:   Server{Addr: ":9091"},
	}
}

// Decode reads a configuration on top of the defaults. Keys that do not
// map to a setting are an error.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return cfg, fmt.Errorf("decode config: unknown keys: %s", strings.Join(keys, ", "))
	}
	return cfg, cfg.Validate()
}

// Load reads the configuration file at path. An empty path returns the
// defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	defer f.Close()
	cfg, err := Decode(f)
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.Machine.ToolDiameter <= 0:
		return fmt.Errorf("machine.tool_diameter must be positive")
	case c.Machine.InfeedDepth <= 0:
		return fmt.Errorf("machine.infeed_depth must be positive")
	case c.Com.Baud < 0:
		return fmt.Errorf("com.baud must not be negative")
	case c.TinyG.MaxLines < 0:
		return fmt.Errorf("tinyg.max_lines must not be negative")
	case c.Leveling.Granularity < 0:
		return fmt.Errorf("leveling.granularity must not be negative")
	case c.Leveling.ProbeFeedRate <= 0:
		return fmt.Errorf("leveling.probe_feed_rate must be positive")
	case c.Leveling.ProbeMaxTravel <= 0:
		return fmt.Errorf("leveling.probe_max_travel must be positive")
	}
	switch c.Optimizers.HoleOrder.Algorithm {
	case optimize.TwoOpt, optimize.Greedy:
	default:
		return fmt.Errorf("optimizers.hole_order.algorithm: unknown algorithm %q", c.Optimizers.HoleOrder.Algorithm)
	}
	return nil
}

// OptimizerSet returns a copy of the configured optimizers logging to l.
func (c Config) OptimizerSet(l *log.Logger) optimize.Set {
	o := c.Optimizers
	set := optimize.Set{
		HoleOrder:          &o.HoleOrder,
		MillingCombination: &o.MillingCombination,
		Breakout:           &o.Breakout,
		MillingOrder:       &o.MillingOrder,
	}
	set.SetLogger(l)
	return set
}

// ProbeGrid returns the options of a grid probe over width by height.
func (l Leveling) ProbeGrid(width, height float64) machine.ProbeGridOptions {
	return machine.ProbeGridOptions{
		ProbeOptions: machine.ProbeOptions{FeedRate: l.ProbeFeedRate, MaxTravel: l.ProbeMaxTravel},
		DistanceX:    width,
		DistanceY:    height,
		Granularity:  l.Granularity,
	}
}

// TinyGConfig builds the controller configuration, loading the probe
// mesh if leveling is enabled.
func (c Config) TinyGConfig(l *log.Logger) (tinyg.Config, error) {
	cfg := tinyg.Config{
		Params: c.Machine,
		Conn: tinyg.ConnConfig{
			MaxLines:     c.TinyG.MaxLines,
			QueryTimeout: c.Com.Timeout,
			Logger:       l,
		},
		StatusInterval: c.TinyG.StatusInterval,
		FlowControl:    c.Com.FlowControl,
		Settings:       c.TinyG.Settings,
		Logger:         l,
	}
	if c.Leveling.ProbeFile == "" {
		return cfg, nil
	}

	mesh, err := meshlevel.LoadMesh(c.Leveling.ProbeFile, c.Leveling.ReferenceZ)
	if err != nil {
		return cfg, fmt.Errorf("leveling: %w", err)
	}
	cfg.Surface = mesh
	cfg.Granularity = c.Leveling.Granularity
	return cfg, nil
}
