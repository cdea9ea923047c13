package optimize

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/mastercactapus/pcbmill/machining"
	"github.com/mastercactapus/pcbmill/tsp"
)

// MillingOrder minimizes the jog path between millings with a
// nearest-neighbor search from the end of one milling to the start of
// the next.
type MillingOrder struct {
	Active bool `toml:"active"`

	Logger *log.Logger `toml:"-"`
}

func NewMillingOrder() *MillingOrder { return &MillingOrder{Active: true} }

func (o *MillingOrder) OptimizeMillings(l *machining.MillingList) error {
	if !o.Active || l.Len() <= 1 {
		return nil
	}
	lg := logger(o.Logger)
	lg.Info("optimizing milling order", "millings", l.Len())

	m, err := tsp.TwoPointDistances(l.Endpoints())
	if err != nil {
		return err
	}
	order := tsp.Greedy(m)
	if err := l.Reorder(order); err != nil {
		return fmt.Errorf("reorder millings: %w", err)
	}
	lg.Info("milling order optimized", "jog", fmt.Sprintf("%.3f", tsp.PathLength(m, order)))
	return nil
}
