// Package tinyg controls a TinyG board over its JSON line mode protocol.
package tinyg

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/mastercactapus/pcbmill/coord"
	"github.com/mastercactapus/pcbmill/gcode"
	"github.com/mastercactapus/pcbmill/machine"
	"github.com/mastercactapus/pcbmill/machining"
	"github.com/mastercactapus/pcbmill/meshlevel"
)

const (
	DefaultStatusInterval = 200 * time.Millisecond

	finalizeTimeout = time.Second
	softLimitMargin = 1.0
	unlimitedTravel = 1000.0
)

// Config configures a TinyG.
type Config struct {
	Params machine.Params
	Conn   ConnConfig

	StatusInterval time.Duration
	FlowControl    FlowControl

	// Settings are raw TinyG parameters (e.g. "1ma", "xtm", "sl") applied
	// after connecting.
	Settings map[string]float64

	// Surface, if set, levels every cycle before it is sent.
	Surface     meshlevel.ZOffsetter
	Granularity float64

	Logger *log.Logger
}

// TinyG is a machine.Machine talking to a TinyG board.
type TinyG struct {
	*Planner

	adapter machine.Adapter
	cfg     Config
	log     *log.Logger
	events  chan Event

	mx        sync.Mutex
	conn      *Conn
	watchDone chan struct{}
	state     machine.State
	status    map[string]float64
	offset    coord.Point
	homed     bool
	homing    homingPhase
	cycleID   string
	running   bool
	probeCh   chan *ProbeReport
}

var _ machine.Machine = &TinyG{}
var _ machine.LaserCrosshair = &TinyG{}

func New(a machine.Adapter, cfg Config) *TinyG {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Conn.Logger == nil {
		cfg.Conn.Logger = cfg.Logger
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = DefaultStatusInterval
	}
	return &TinyG{
		Planner: NewPlanner(cfg.Params),
		adapter: a,
		cfg:     cfg,
		log:     cfg.Logger,
		events:  make(chan Event, 256),
	}
}

// Events returns status, queue, buffer and cycle events of all connections.
func (t *TinyG) Events() <-chan Event { return t.events }

func (t *TinyG) emit(ev Event) {
	select {
	case t.events <- ev:
	default:
		t.log.Debug("event dropped", "kind", ev.Kind)
	}
}

func (t *TinyG) Params() machine.Params {
	t.mx.Lock()
	defer t.mx.Unlock()
	return t.Planner.Params
}

func (t *TinyG) State() machine.State {
	t.mx.Lock()
	defer t.mx.Unlock()
	return t.state
}

func (t *TinyG) Homed() bool {
	t.mx.Lock()
	defer t.mx.Unlock()
	return t.homed
}

func (t *TinyG) connection() (*Conn, error) {
	t.mx.Lock()
	defer t.mx.Unlock()
	if t.conn == nil {
		return nil, machine.ErrNotInitialized
	}
	return t.conn, nil
}

func (t *TinyG) send(lines ...gcode.Block) error {
	conn, err := t.connection()
	if err != nil {
		return err
	}
	for _, b := range lines {
		err = conn.Send(GCode(b.String()))
		if err != nil {
			return &machine.CommunicationError{Command: b.String(), Message: "send", Err: err}
		}
	}
	return nil
}

func (t *TinyG) query(ctx context.Context, cmd Command) (*Message, error) {
	conn, err := t.connection()
	if err != nil {
		return nil, err
	}
	return conn.Query(ctx, cmd)
}

// Initialize connects to the board, resets it and applies the settings.
func (t *TinyG) Initialize(ctx context.Context) (err error) {
	if t.State().Initialized() {
		err = t.Finalize()
		if err != nil {
			return err
		}
	}

	t.log.Info("connecting to TinyG",
		"query_timeout", t.cfg.Conn.QueryTimeout,
		"status_interval", t.cfg.StatusInterval,
		"flow_control", t.cfg.FlowControl,
	)
	rw, err := t.adapter.Open()
	if err != nil {
		return &machine.CommunicationError{Command: "open", Message: "open transport", Err: err}
	}

	conn := NewConn(rw, t.cfg.Conn)
	done := make(chan struct{})
	t.mx.Lock()
	t.conn = conn
	t.watchDone = done
	t.homed = false
	t.homing = homingIdle
	t.mx.Unlock()
	go t.watch(conn, done)

	defer func() {
		if err != nil {
			t.Finalize()
		}
	}()

	err = t.connect(ctx, conn)
	if err != nil {
		return fmt.Errorf("initialize TinyG: %w", err)
	}

	t.mx.Lock()
	t.state = machine.StateInitialized
	t.mx.Unlock()
	t.log.Info("connected to TinyG")
	return nil
}

var statusFields = map[string]bool{
	"posx": true, "posy": true, "posz": true, "posa": true,
	"feed": true, "vel": true, "unit": true, "coor": true,
	"dist": true, "frmo": true, "stat": true, "momo": true,
}

func (t *TinyG) connect(ctx context.Context, conn *Conn) error {
	err := conn.Reset(ctx)
	if err != nil {
		return err
	}

	send := func(cmds ...Command) error {
		for _, c := range cmds {
			err := conn.Send(c)
			if err != nil {
				return &machine.CommunicationError{Command: c.String(), Message: "send", Err: err}
			}
		}
		return nil
	}

	err = send(Command{Key: "js", Value: 1}, Command{Key: "jv", Value: 5})
	if err != nil {
		return err
	}
	_, err = conn.Query(ctx, Command{Key: "sr", Value: statusFields})
	if err != nil {
		return err
	}
	err = send(
		Command{Key: "qv", Value: 1},
		Command{Key: "sv", Value: 1},
		Command{Key: "si", Value: t.cfg.StatusInterval.Milliseconds()},
		Command{Key: "ex", Value: int(t.cfg.FlowControl)},
	)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(t.cfg.Settings))
	for k := range t.cfg.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, err = conn.Query(ctx, Command{Key: k, Value: t.cfg.Settings[k]})
		if err != nil {
			return err
		}
	}
	if len(keys) > 0 {
		t.log.Info("TinyG parameters applied", "count", len(keys))
	}

	msg, err := conn.Query(ctx, Command{Key: "sr"})
	if err != nil {
		return err
	}
	var sr map[string]float64
	err = msg.Decode("sr", &sr)
	if err != nil {
		return fmt.Errorf("decode status report: %w", err)
	}

	origin := t.Params().DefaultOrigin
	t.mx.Lock()
	t.status = sr
	t.offset = origin
	t.mx.Unlock()

	return send(
		GCode(gcode.Block{gcode.G(10), gcode.Word{W: 'L', Arg: 2}, gcode.Word{W: 'P', Arg: 1}, gcode.X(0), gcode.Y(0), gcode.Z(0)}.String()),
		GCode(gcode.Block{gcode.G(10), gcode.Word{W: 'L', Arg: 2}, gcode.Word{W: 'P', Arg: 2}, gcode.X(origin.X), gcode.Y(origin.Y), gcode.Z(origin.Z)}.String()),
	)
}

func (t *TinyG) watch(conn *Conn, done chan struct{}) {
	defer close(done)
	for ev := range conn.Events() {
		switch ev.Kind {
		case EventStatus:
			t.updateStatus(ev.Status)
		case EventProbe:
			t.deliverProbe(ev.Probe)
		}
		t.emit(ev)
	}
}

func (t *TinyG) updateStatus(sr map[string]float64) {
	t.mx.Lock()
	if t.status == nil {
		t.status = make(map[string]float64, len(sr))
	}
	for k, v := range sr {
		t.status[k] = v
	}
	stat, coor := t.status["stat"], t.status["coor"]
	homed := t.trackHoming(stat)

	var completed *Cycle
	if t.state == machine.StateExecuting {
		if stat != StatProgramEnd {
			t.running = true
		} else if t.running {
			t.state = machine.StateCompleted
			completed = &Cycle{ID: t.cycleID, State: t.state}
		}
	}
	t.mx.Unlock()

	t.log.Debug("status update", "stat", statusText("stat", stat), "coor", statusText("coor", coor))
	if homed {
		t.log.Info("TinyG homing cycle finished")
	}
	if completed != nil {
		t.log.Info("cycle completed", "id", completed.ID)
		t.emit(Event{Kind: EventCycle, Cycle: completed})
	}
}

// StatusText describes the machine state and coordinate system of the last status report.
func (t *TinyG) StatusText() string {
	t.mx.Lock()
	defer t.mx.Unlock()
	if t.status == nil {
		return "Not connected"
	}
	return fmt.Sprintf("%s (current coordinate system: %s)",
		statusText("stat", t.status["stat"]), statusText("coor", t.status["coor"]))
}

// Finalize stops the machine, switches the spindle off and closes the connection.
func (t *TinyG) Finalize() error {
	t.mx.Lock()
	conn := t.conn
	done := t.watchDone
	t.conn = nil
	t.state = machine.StateUninitialized
	t.status = nil
	t.running = false
	t.mx.Unlock()
	if conn == nil {
		return nil
	}

	if err := conn.Stop(); err != nil {
		t.log.Warn("stop", "err", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	_, err := conn.Query(ctx, GCode("M5"))
	cancel()
	if err != nil {
		t.log.Warn("spindle off", "err", err)
	}

	err = conn.Close()
	<-done
	t.log.Info("TinyG connection closed")
	return err
}

// Position returns the position of the last status report.
func (t *TinyG) Position(absolute bool) (coord.Point, error) {
	t.mx.Lock()
	defer t.mx.Unlock()
	if t.status == nil {
		return coord.Point{}, machine.ErrNotInitialized
	}
	pos := coord.Point{X: t.status["posx"], Y: t.status["posy"], Z: t.status["posz"]}
	g54 := t.status["coor"] == CoorG54

	switch {
	case absolute && g54:
		return pos, nil
	case absolute:
		return pos.Add(t.offset), nil
	case g54:
		return pos.Sub(t.offset), nil
	}
	return pos, nil
}

func (t *TinyG) Feedhold() error {
	conn, err := t.connection()
	if err != nil {
		return err
	}
	return conn.Feedhold()
}

func (t *TinyG) Resume() error {
	conn, err := t.connection()
	if err != nil {
		return err
	}
	return conn.Resume()
}

func (t *TinyG) abortCycle() {
	t.mx.Lock()
	var aborted *Cycle
	if t.state == machine.StateExecuting {
		t.state = machine.StateInitialized
		aborted = &Cycle{ID: t.cycleID, State: t.state}
	}
	t.mx.Unlock()
	if aborted != nil {
		t.log.Warn("cycle aborted", "id", aborted.ID)
		t.emit(Event{Kind: EventCycle, Cycle: aborted})
	}
}

// Stop halts motion and flushes all buffered commands.
func (t *TinyG) Stop() error {
	conn, err := t.connection()
	if err != nil {
		return err
	}
	err = conn.Stop()
	t.abortCycle()
	return err
}

// Reset reboots the board. The machine is no longer homed afterwards.
func (t *TinyG) Reset(ctx context.Context) error {
	conn, err := t.connection()
	if err != nil {
		return err
	}
	t.mx.Lock()
	t.homed = false
	t.homing = homingIdle
	t.mx.Unlock()
	err = conn.Reset(ctx)
	t.abortCycle()
	return err
}

// Clear clears an alarm state.
func (t *TinyG) Clear(ctx context.Context) error {
	conn, err := t.connection()
	if err != nil {
		return err
	}
	return conn.Send(Command{Key: "clear"})
}

// GoTo moves with rapids. Z moves first when moving up, last otherwise.
func (t *TinyG) GoTo(ctx context.Context, pos coord.Point, opt machine.MoveOptions) error {
	cur, err := t.Position(opt.Absolute)
	if err != nil {
		return err
	}

	coordSys := gcode.G(55)
	if opt.Absolute {
		coordSys = gcode.G(54)
	}
	b := []gcode.Block{{coordSys}, {gcode.G(90)}}

	zFirst := !opt.KeepZ && pos.Z > cur.Z
	if zFirst {
		b = append(b, gcode.Block{gcode.G(0), gcode.Z(pos.Z)})
	}
	b = append(b, gcode.Block{gcode.G(0), gcode.X(pos.X), gcode.Y(pos.Y)})
	if !opt.KeepZ && !zFirst {
		b = append(b, gcode.Block{gcode.G(0), gcode.Z(pos.Z)})
	}

	return t.send(b...)
}

func axis(d machine.Direction, i int) int {
	return [...]int{d.X, d.Y, d.Z}[i]
}

// travelLimits returns the jog target per axis for a continuous jog,
// staying 1mm inside the soft limits, or at ±unlimitedTravel when soft
// limits are disabled.
func (t *TinyG) travelLimits(dir machine.Direction) [3]float64 {
	s := t.cfg.Settings
	limited := s["sl"] != 0
	var res [3]float64
	for i, a := range []string{"x", "y", "z"} {
		neg := axis(dir, i) < 0
		switch {
		case !limited && neg:
			res[i] = -unlimitedTravel
		case !limited:
			res[i] = unlimitedTravel
		case neg:
			res[i] = s[a+"tn"] + softLimitMargin
		default:
			res[i] = s[a+"tm"] - softLimitMargin
		}
	}
	return res
}

// Jog moves by step in dir. A step <= 0 jogs to the travel limit until Stop.
func (t *TinyG) Jog(ctx context.Context, dir machine.Direction, step float64) error {
	if dir.IsZero() || !dir.Valid() {
		return &machining.InvalidArgumentError{Argument: "direction", Description: fmt.Sprintf("%+v", dir)}
	}

	var target [3]float64
	var b []gcode.Block
	if step <= 0 {
		pos, err := t.Position(true)
		if err != nil {
			return err
		}
		b = append(b, gcode.Block{gcode.G(54)}, gcode.Block{gcode.G(90)})
		target = t.travelLimits(dir)
		cur := [3]float64{pos.X, pos.Y, pos.Z}
		for i := range target {
			if axis(dir, i) == 0 {
				target[i] = cur[i]
			}
		}
	} else {
		b = append(b, gcode.Block{gcode.G(91)})
		for i := range target {
			target[i] = step * float64(axis(dir, i))
		}
	}

	p := t.Params()
	if dir.X != 0 || dir.Y != 0 {
		b = append(b, gcode.Block{gcode.G(1), gcode.F(p.JogSpeedXY), gcode.X(target[0]), gcode.Y(target[1])})
	} else {
		b = append(b, gcode.Block{gcode.G(1), gcode.F(p.JogSpeedZ), gcode.Z(target[2])})
	}
	return t.send(b...)
}

func (t *TinyG) SetSpindle(ctx context.Context, enable bool) error {
	cmd := "M5"
	if enable {
		cmd = "M3"
	}
	_, err := t.query(ctx, GCode(cmd))
	return err
}

func (t *TinyG) SetLaserCrosshair(ctx context.Context, enable bool) error {
	cmd := "M9"
	if enable {
		cmd = "M8"
	}
	_, err := t.query(ctx, GCode(cmd))
	return err
}

type homingPhase int

const (
	homingIdle homingPhase = iota
	homingRequested
	homingActive
)

// HomingCycle queues a homing cycle. The machine counts as homed once a
// status report shows the homing state ending in a ready state.
func (t *TinyG) HomingCycle(ctx context.Context) error {
	t.mx.Lock()
	t.homed = false
	t.homing = homingRequested
	t.mx.Unlock()

	t.log.Info("TinyG homing cycle started")
	err := t.send(gcode.Block{gcode.G(28.2), gcode.X(0), gcode.Y(0), gcode.Z(0)})
	if err != nil {
		t.mx.Lock()
		t.homing = homingIdle
		t.mx.Unlock()
		return err
	}
	return nil
}

// trackHoming advances the homing phase on a status report and reports
// whether homing just finished. t.mx must be held.
func (t *TinyG) trackHoming(stat float64) bool {
	switch t.homing {
	case homingRequested:
		if stat == StatHoming {
			t.homing = homingActive
		}
	case homingActive:
		switch stat {
		case StatReady, StatProgramStop, StatProgramEnd:
			t.homing = homingIdle
			t.homed = true
			return true
		case StatAlarm:
			t.homing = homingIdle
		}
	}
	return false
}

// SetWorkpieceOrigin moves the G55 origin to the current position plus offset.
// Z stays at the default origin.
func (t *TinyG) SetWorkpieceOrigin(ctx context.Context, offset coord.Vec) error {
	pos, err := t.Position(true)
	if err != nil {
		return err
	}
	origin := coord.Point{X: pos.X + offset.X, Y: pos.Y + offset.Y, Z: t.Params().DefaultOrigin.Z}

	t.mx.Lock()
	t.offset = origin
	t.mx.Unlock()

	return t.send(
		gcode.Block{gcode.G(10), gcode.Word{W: 'L', Arg: 2}, gcode.Word{W: 'P', Arg: 2}, gcode.X(origin.X), gcode.Y(origin.Y), gcode.Z(origin.Z)},
		gcode.Block{gcode.G(55)},
	)
}

// SetDefaultOrigin stores pos and applies its Z to the workpiece origin.
func (t *TinyG) SetDefaultOrigin(ctx context.Context, pos coord.Point) error {
	t.mx.Lock()
	t.Planner.Params.DefaultOrigin = pos
	t.offset.Z = pos.Z
	t.mx.Unlock()

	return t.send(gcode.Block{gcode.G(10), gcode.Word{W: 'L', Arg: 2}, gcode.Word{W: 'P', Arg: 2}, gcode.Z(pos.Z)})
}

func (t *TinyG) transition(op string, to machine.State, from ...machine.State) error {
	t.mx.Lock()
	defer t.mx.Unlock()
	err := machine.CheckState(op, t.state, from...)
	if err != nil {
		return err
	}
	t.state = to
	return nil
}

func (t *TinyG) PreparePlanner() error {
	err := t.transition("prepare planner", machine.StatePlannerPreparing,
		machine.StateInitialized, machine.StatePlannerPreparing, machine.StatePlannerReady, machine.StateCompleted)
	if err != nil {
		return err
	}
	return t.Planner.PreparePlanner()
}

func (t *TinyG) FinalizePlanner() error {
	err := t.transition("finalize planner", machine.StatePlannerReady, machine.StatePlannerPreparing)
	if err != nil {
		return err
	}
	return t.Planner.FinalizePlanner()
}

// ExecuteCycle sends the planned cycle, leveled if a surface is configured,
// and clears the planner buffer.
func (t *TinyG) ExecuteCycle(ctx context.Context) (string, error) {
	err := machine.CheckState("execute cycle", t.State(), machine.StatePlannerReady)
	if err != nil {
		return "", err
	}

	cmds := t.Planner.Commands()
	if t.cfg.Surface != nil {
		start, err := t.Position(false)
		if err != nil {
			return "", err
		}
		cmds, err = meshlevel.Level(t.cfg.Surface, t.cfg.Granularity, start, cmds)
		if err != nil {
			return "", fmt.Errorf("level cycle: %w", err)
		}
	}

	conn, err := t.connection()
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	t.mx.Lock()
	t.state = machine.StateExecuting
	t.cycleID = id
	t.running = false
	t.mx.Unlock()

	t.log.Info("executing TinyG cycle", "id", id, "commands", len(cmds))
	for _, cmd := range cmds {
		err = conn.Send(GCode(cmd))
		if err != nil {
			t.abortCycle()
			return "", &machine.CommunicationError{Command: cmd, Message: "send", Err: err}
		}
	}
	t.Planner.Clear()
	t.emit(Event{Kind: EventCycle, Cycle: &Cycle{ID: id, State: machine.StateExecuting}})

	return id, nil
}

// Snapshot is the current state of a TinyG.
type Snapshot struct {
	State     machine.State      `json:"state"`
	Homed     bool               `json:"homed"`
	Machine   coord.Point        `json:"machine"`
	Workpiece coord.Point        `json:"workpiece"`
	Status    map[string]float64 `json:"status,omitempty"`
	Message   string             `json:"message"`
	Buffer    BufferStatus       `json:"buffer"`
	Cycle     string             `json:"cycle,omitempty"`
}

func (t *TinyG) Snapshot() Snapshot {
	s := Snapshot{State: t.State(), Homed: t.Homed(), Message: t.StatusText()}
	s.Machine, _ = t.Position(true)
	s.Workpiece, _ = t.Position(false)

	t.mx.Lock()
	if t.status != nil {
		s.Status = make(map[string]float64, len(t.status))
		for k, v := range t.status {
			s.Status[k] = v
		}
	}
	s.Cycle = t.cycleID
	conn := t.conn
	t.mx.Unlock()
	if conn != nil {
		s.Buffer = conn.Buffer()
	}
	return s
}

// FlowControl selects the flow control the TinyG uses on its serial port.
type FlowControl int

const (
	FlowNone FlowControl = iota
	FlowXonXoff
	FlowRTSCTS
)

func (fc FlowControl) String() string {
	switch fc {
	case FlowXonXoff:
		return "xonxoff"
	case FlowRTSCTS:
		return "rtscts"
	}
	return "none"
}

func (fc FlowControl) MarshalText() ([]byte, error) { return []byte(fc.String()), nil }

func (fc *FlowControl) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "", "none":
		*fc = FlowNone
	case "xonxoff", "xon/xoff":
		*fc = FlowXonXoff
	case "rtscts", "rts/cts":
		*fc = FlowRTSCTS
	default:
		return fmt.Errorf("unknown flow control %q", text)
	}
	return nil
}
