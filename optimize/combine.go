package optimize

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/mastercactapus/pcbmill/machining"
)

// MillingCombination joins millings that share an endpoint into a
// single longer milling.
//
// Starting from the first milling it repeatedly looks for a milling
// that starts (or, reversed, ends) at the current end and appends it.
// When none is left, the next unprocessed milling starts a new chain.
type MillingCombination struct {
	Active bool `toml:"active"`

	Logger *log.Logger `toml:"-"`
}

func NewMillingCombination() *MillingCombination { return &MillingCombination{Active: true} }

func (o *MillingCombination) OptimizeMillings(l *machining.MillingList) error {
	if !o.Active {
		return nil
	}
	lg := logger(o.Logger)
	if l.Len() == 0 {
		lg.Info("no millings to combine")
		return nil
	}
	lg.Info("combining adjacent millings", "millings", l.Len())

	cur := l.Pop(0)
	combined := []*machining.Milling{cur}
	for l.Len() > 0 {
		found := false
		end, ok := cur.End()
		for i := 0; ok && i < l.Len(); i++ {
			m := l.At(i)
			if e, ok := m.End(); ok && e.Equal(end) {
				lg.Debug("reversing milling", "index", i)
				m.Reverse()
			}
			if s, ok := m.Start(); !ok || !s.Equal(end) {
				continue
			}
			if err := cur.AppendMilling(m); err != nil {
				return fmt.Errorf("combine milling: %w", err)
			}
			l.Pop(i)
			found = true
			break
		}
		if !found && l.Len() > 0 {
			cur = l.Pop(0)
			combined = append(combined, cur)
		}
	}

	l.AppendList(combined)
	lg.Info("millings combined", "remaining", l.Len())
	return nil
}
