// Package optimize holds the optimizers applied to hole and milling
// lists before motion planning.
package optimize

import (
	"github.com/charmbracelet/log"
)

func logger(l *log.Logger) *log.Logger {
	if l == nil {
		return log.Default()
	}
	return l
}
