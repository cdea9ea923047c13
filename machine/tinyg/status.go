package tinyg

import "fmt"

var statusMessages = map[string][]string{
	"footer": {"OK", "Error"},
	"error":  {},
	"stat": {"Machine initializing", "Machine ready", "Machine in soft alarm state",
		"Program stop or no more blocks", "Program end", "Motion is running",
		"Motion is holding", "Probe cycle active", "Machine is homing",
		"Machine is jogging", "Machine in hard alarm state"},
	"momo": {"G0", "G1", "G2", "G3", "G80"},
	"unit": {"G20 (inch)", "G21 (mm)"},
	"macs": {"Machine initializing", "Machine ready", "Machine in soft alarm state",
		"Program stop or no more blocks", "Program end", "Machine in cycle",
		"Machine in shutdown"},
	"cycs": {"No cycle", "Normal cycle", "Probe cycle", "Homing cycle", "Jog cycle"},
	"mots": {"Motion off", "Motion run", "Motion hold"},
	"hold": {"Feedhold off", "Feedhold sync phase", "Feedhold planning phase",
		"Feedhold deceleration phase", "Feedhold holding", "Feedhold end hold"},
	"coor": {"G53", "G54", "G55", "G56", "G57", "G58", "G59"},
	"plan": {"G17 (xy)", "G18 (xz)", "G19 (yz)"},
	"path": {"G61 (exact path)", "G61.1 (exact stop)", "G64 (continuous)"},
	"dist": {"G90 (absolute)", "G91 (incremental)"},
	"frmo": {"G93 (inv time)", "G94 (u/min)", "G95(u/rev)"},
}

// Status report codes used by the machine.
const (
	StatReady       = 1
	StatAlarm       = 2
	StatProgramStop = 3
	StatProgramEnd  = 4
	StatHoming      = 9
	CoorG54         = 1
)

// StatusMessage returns a readable text for a status report code of the
// given kind (stat, coor, momo, ...). Codes past the known ones read "Unknown".
func StatusMessage(kind string, code int) (string, error) {
	msgs, ok := statusMessages[kind]
	if !ok {
		return "", fmt.Errorf("unknown status kind %q", kind)
	}
	if code < 0 {
		return "", fmt.Errorf("invalid %s code %d", kind, code)
	}
	if code >= len(msgs) {
		return "Unknown", nil
	}
	return msgs[code], nil
}

func statusText(kind string, code float64) string {
	s, err := StatusMessage(kind, int(code))
	if err != nil {
		return err.Error()
	}
	return s
}
