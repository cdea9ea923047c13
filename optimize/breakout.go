package optimize

import (
	"fmt"
	"math"

	"github.com/charmbracelet/log"
	"github.com/mastercactapus/pcbmill/machining"
)

// Breakout inserts breakout bars (short uncut gaps) into closed millings
// so that cut-outs stay attached to the board.
//
// A closed milling at least MinCutLength long gets a bar of Size mm after
// every Distance mm. If that yields no more than MinNumber bars, MinNumber
// bars are spread evenly instead.
type Breakout struct {
	Active       bool    `toml:"active"`
	Distance     float64 `toml:"distance"`
	Size         float64 `toml:"size"`
	MinNumber    int     `toml:"min_number"`
	MinCutLength float64 `toml:"min_cut_length"`

	Logger *log.Logger `toml:"-"`
}

func NewBreakout() *Breakout {
	return &Breakout{Active: true, Distance: 100, Size: 2, MinNumber: 2, MinCutLength: 40}
}

// Plan returns the number of bars for a cut-out of the given length and
// the cut length between consecutive bars.
func (o *Breakout) Plan(length float64) (bars int, spacing float64, err error) {
	if o.Distance+o.Size <= 0 {
		return 0, 0, &machining.InvalidArgumentError{Argument: "distance", Description: "distance + size must be positive"}
	}
	if o.Size < 0 || o.MinNumber < 0 {
		return 0, 0, &machining.InvalidArgumentError{Argument: "size", Description: "size and min number must not be negative"}
	}

	spacing = o.Distance
	bars = int(math.Floor(length / (o.Distance + o.Size)))
	if bars <= o.MinNumber {
		bars = o.MinNumber
		if bars > 0 {
			spacing = length/float64(bars) - o.Size
		}
	}
	return bars, spacing, nil
}

func (o *Breakout) OptimizeMillings(l *machining.MillingList) error {
	if !o.Active || l.Len() == 0 {
		return nil
	}
	lg := logger(o.Logger)
	lg.Info("inserting breakout bars")
	lg.Debug("breakout parameters", "distance", o.Distance, "size", o.Size, "min_number", o.MinNumber, "min_cut_length", o.MinCutLength)

	var cutouts []*machining.Milling
	for i := l.Len() - 1; i >= 0; i-- {
		m := l.At(i)
		if !m.Closed() || m.Length() < o.MinCutLength {
			continue
		}
		lg.Debug("found cut-out", "length", m.Length())
		cutouts = append(cutouts, l.Pop(i))
	}

	var res []*machining.Milling
	for _, cut := range cutouts {
		bars, spacing, err := o.Plan(cut.Length())
		if err != nil {
			return err
		}
		if spacing <= 0 {
			lg.Warn("cut-out too short for breakout bars, skipping", "length", cut.Length(), "bars", bars)
			res = append(res, cut)
			continue
		}
		lg.Debug("splitting cut-out", "length", cut.Length(), "bars", bars, "spacing", spacing)

		for i := 0; i < bars && cut != nil; i++ {
			if spacing > cut.Length() {
				// rounding left a remainder shorter than one segment
				break
			}
			next, err := cut.Split(spacing, o.Size)
			if err != nil {
				return fmt.Errorf("split cut-out: %w", err)
			}
			res = append(res, cut)
			cut = next
		}
		if cut != nil {
			res = append(res, cut)
		}
	}

	l.AppendList(res)
	lg.Info("breakout bars added", "cutouts", len(cutouts))
	return nil
}
