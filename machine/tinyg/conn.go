package tinyg

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mastercactapus/pcbmill/machine"
)

const (
	DefaultMaxLines     = 4
	DefaultQueryTimeout = time.Second
	DefaultResetTimeout = 10 * time.Second

	maxLineLength = 64 * 1024
)

// ErrFlushed is wrapped by the error of a query that was dropped from the
// send buffer by a stop or reset.
var ErrFlushed = errors.New("send buffer flushed")

// ConnConfig configures a Conn.
type ConnConfig struct {
	// MaxLines is the number of lines the controller buffers.
	MaxLines int

	// QueryTimeout limits the wait for a query response. Zero waits forever.
	// The line of a timed out query counts as acknowledged.
	QueryTimeout time.Duration

	// ResetTimeout limits the wait for SYSTEM READY after a reset.
	ResetTimeout time.Duration

	Logger *log.Logger
}

// BufferStatus is a snapshot of the flow control state.
type BufferStatus struct {
	// SendBufferSize is the number of commands waiting to be sent.
	SendBufferSize int `json:"sendBufferSize"`

	// UsedLines is the number of sent, unacknowledged lines.
	UsedLines int `json:"usedLines"`
}

type EventKind int

const (
	EventStatus EventKind = iota
	EventQueue
	EventUnknown
	EventBuffer
	EventCycle
	EventProbe
)

func (k EventKind) String() string {
	switch k {
	case EventStatus:
		return "status"
	case EventQueue:
		return "queue"
	case EventBuffer:
		return "buffer"
	case EventCycle:
		return "cycle"
	case EventProbe:
		return "probe"
	}
	return "unknown"
}

// Event is an asynchronous report from the controller or the sender.
type Event struct {
	Kind EventKind

	Status map[string]float64
	Queue  int
	Buffer BufferStatus
	Cycle  *Cycle
	Probe  *ProbeReport

	Message *Message
}

// Cycle reports a state change of a machining cycle.
type Cycle struct {
	ID    string        `json:"id"`
	State machine.State `json:"state"`
}

type request struct {
	cmd  Command
	data []byte

	// query is the response key awaited, empty for plain commands.
	query  string
	result chan *Message
}

type control struct {
	raw   string
	flush bool

	cancel *request

	// lost returns the line credit of a cancelled query that was sent
	lost bool

	done chan error
}

// Conn streams commands to a TinyG using its line mode protocol: at most
// MaxLines lines are unacknowledged at any time, and one query is in
// flight at a time.
//
// A sender goroutine owns the send buffer and the line credit; a receiver
// goroutine classifies incoming lines and hands acknowledgements to it.
type Conn struct {
	rw  io.ReadWriteCloser
	cfg ConnConfig
	log *log.Logger

	reqCh   chan *request
	ctlCh   chan control
	ackCh   chan *Message
	readyCh chan *Message
	events  chan Event

	closeCh   chan struct{}
	closeOnce sync.Once
	closeErr  error
	wg        sync.WaitGroup

	mx     sync.Mutex
	buffer BufferStatus

	// owned by sendLoop
	freeLines int
	sendBuf   []*request
	inflight  *request

	// acknowledgements due before the one answering inflight
	inflightAhead int
}

// NewConn starts the sender and receiver for rw. Close stops them and
// closes rw.
func NewConn(rw io.ReadWriteCloser, cfg ConnConfig) *Conn {
	if cfg.MaxLines <= 0 {
		cfg.MaxLines = DefaultMaxLines
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = DefaultResetTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	c := &Conn{
		rw:  rw,
		cfg: cfg,
		log: cfg.Logger,

		reqCh:   make(chan *request),
		ctlCh:   make(chan control),
		ackCh:   make(chan *Message),
		readyCh: make(chan *Message, 1),
		events:  make(chan Event, 64),
		closeCh: make(chan struct{}),

		freeLines: cfg.MaxLines,
	}

	c.wg.Add(2)
	go c.sendLoop()
	go c.readLoop()

	return c
}

// Events returns the channel of status, queue, unknown and buffer events.
// Events are dropped when nobody reads them. The channel is closed by Close.
func (c *Conn) Events() <-chan Event { return c.events }

// Buffer returns the current flow control state.
func (c *Conn) Buffer() BufferStatus {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.buffer
}

// Close stops both workers and closes the transport.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closeCh)
		c.closeErr = c.rw.Close()
		c.wg.Wait()
		close(c.events)
	})
	return c.closeErr
}

func (c *Conn) enqueue(req *request) error {
	data, err := json.Marshal(req.cmd)
	if err != nil {
		return err
	}
	req.data = data

	select {
	case c.reqCh <- req:
		return nil
	case <-c.closeCh:
		return io.ErrClosedPipe
	}
}

// Send appends cmd to the send buffer. It does not wait for the command
// to be transmitted; controller errors are only logged.
func (c *Conn) Send(cmd Command) error {
	return c.enqueue(&request{cmd: cmd})
}

// Query sends cmd and waits for the response containing cmd.Key.
func (c *Conn) Query(ctx context.Context, cmd Command) (*Message, error) {
	req := &request{cmd: cmd, query: cmd.Key, result: make(chan *Message, 1)}
	err := c.enqueue(req)
	if err != nil {
		return nil, &machine.CommunicationError{Command: cmd.String(), Message: "send", Err: err}
	}

	var timeout <-chan time.Time
	if c.cfg.QueryTimeout > 0 {
		t := time.NewTimer(c.cfg.QueryTimeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case msg, ok := <-req.result:
		if !ok {
			return nil, &machine.CommunicationError{Command: cmd.String(), Message: "dropped", Err: ErrFlushed}
		}
		return msg, nil
	case <-timeout:
		_ = c.do(control{cancel: req, lost: true})
		c.log.Error("query timeout", "cmd", cmd)
		return nil, &machine.CommunicationError{Command: cmd.String(), Message: "no response", Err: machine.ErrTimeout}
	case <-ctx.Done():
		c.cancel(req)
		return nil, &machine.CommunicationError{Command: cmd.String(), Message: "cancelled", Err: ctx.Err()}
	case <-c.closeCh:
		return nil, &machine.CommunicationError{Command: cmd.String(), Message: "connection closed", Err: io.ErrClosedPipe}
	}
}

func (c *Conn) do(ctl control) error {
	ctl.done = make(chan error, 1)
	select {
	case c.ctlCh <- ctl:
	case <-c.closeCh:
		return io.ErrClosedPipe
	}
	select {
	case err := <-ctl.done:
		return err
	case <-c.closeCh:
		return io.ErrClosedPipe
	}
}

func (c *Conn) cancel(req *request) { _ = c.do(control{cancel: req}) }

// Feedhold pauses motion.
func (c *Conn) Feedhold() error { return c.do(control{raw: "!"}) }

// Resume continues after a feedhold.
func (c *Conn) Resume() error { return c.do(control{raw: "~"}) }

// Stop halts motion and flushes both the local and the controller's buffer.
func (c *Conn) Stop() error { return c.do(control{raw: "!%", flush: true}) }

// Reset reboots the controller and waits for SYSTEM READY.
func (c *Conn) Reset(ctx context.Context) error {
	select {
	case <-c.readyCh:
	default:
	}

	err := c.do(control{raw: "\x18", flush: true})
	if err != nil {
		return &machine.CommunicationError{Command: "reset", Message: "send", Err: err}
	}

	t := time.NewTimer(c.cfg.ResetTimeout)
	defer t.Stop()
	select {
	case <-c.readyCh:
		return nil
	case <-t.C:
		c.log.Error("reset timeout")
		return &machine.CommunicationError{Command: "reset", Message: "no system ready", Err: machine.ErrTimeout}
	case <-ctx.Done():
		return &machine.CommunicationError{Command: "reset", Message: "cancelled", Err: ctx.Err()}
	case <-c.closeCh:
		return &machine.CommunicationError{Command: "reset", Message: "connection closed", Err: io.ErrClosedPipe}
	}
}

func (c *Conn) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.log.Debug("event dropped", "kind", ev.Kind)
	}
}

func (c *Conn) write(data string) error {
	if data == "" || data[len(data)-1] != '\n' {
		data += "\n"
	}
	c.log.Debug("send", "line", data[:len(data)-1])
	_, err := io.WriteString(c.rw, data)
	if err != nil {
		c.log.Error("write to port", "err", err)
	}
	return err
}

func (c *Conn) sendLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.closeCh:
			c.dropAll()
			return
		case req := <-c.reqCh:
			c.log.Debug("appended", "cmd", req.cmd, "query", req.query != "")
			c.sendBuf = append(c.sendBuf, req)
			c.drain()
		case ctl := <-c.ctlCh:
			ctl.done <- c.control(ctl)
		case msg := <-c.ackCh:
			c.ack(msg)
		}
	}
}

// drain sends buffered commands while there is line credit. A query waits
// at the head of the buffer until the previous query is answered.
func (c *Conn) drain() {
	for len(c.sendBuf) > 0 && c.freeLines > 0 {
		req := c.sendBuf[0]
		if req.query != "" && c.inflight != nil {
			break
		}
		c.sendBuf[0] = nil
		c.sendBuf = c.sendBuf[1:]
		if req.query != "" {
			c.inflight = req
			c.inflightAhead = c.cfg.MaxLines - c.freeLines
		}
		_ = c.write(string(req.data))
		c.freeLines--
		c.log.Debug("free line buffers", "free", c.freeLines)
	}
	c.publishBuffer()
}

func (c *Conn) ack(msg *Message) {
	c.freeLines++
	c.log.Debug("free line buffers", "free", c.freeLines)
	if c.freeLines > c.cfg.MaxLines {
		c.log.Warn("max lines exceeded, line buffer out of sync?", "free", c.freeLines, "max", c.cfg.MaxLines)
		c.freeLines = c.cfg.MaxLines
	}

	if code := msg.StatusCode(); code == MinorWarning {
		c.log.Debug("response contains a warning", "response", string(msg.Raw), "code", code)
	} else if code != 0 {
		c.log.Error("response contains an error", "response", string(msg.Raw), "code", code)
	}

	// acknowledgements arrive in the order the lines were sent
	switch {
	case c.inflight == nil:
	case c.inflightAhead > 0:
		c.inflightAhead--
	case msg.Has(c.inflight.query):
		c.inflight.result <- msg
		c.inflight = nil
	default:
		c.log.Warn("acknowledgement does not match query", "query", c.inflight.query, "response", string(msg.Raw))
	}

	c.drain()
}

func (c *Conn) control(ctl control) error {
	if ctl.cancel != nil {
		if c.inflight == ctl.cancel {
			c.inflight = nil
			if ctl.lost && c.freeLines < c.cfg.MaxLines {
				c.freeLines++
			}
		}
		for i, req := range c.sendBuf {
			if req == ctl.cancel {
				c.sendBuf = append(c.sendBuf[:i], c.sendBuf[i+1:]...)
				break
			}
		}
		c.drain()
		return nil
	}

	if ctl.flush {
		c.dropAll()
	}
	err := c.write(ctl.raw)
	if ctl.flush {
		c.freeLines = c.cfg.MaxLines
		c.publishBuffer()
	}
	return err
}

func (c *Conn) dropAll() {
	for _, req := range c.sendBuf {
		if req.result != nil {
			close(req.result)
		}
	}
	c.sendBuf = nil
	if c.inflight != nil {
		close(c.inflight.result)
		c.inflight = nil
	}
}

func (c *Conn) publishBuffer() {
	stat := BufferStatus{
		SendBufferSize: len(c.sendBuf),
		UsedLines:      c.cfg.MaxLines - c.freeLines,
	}
	c.mx.Lock()
	changed := stat != c.buffer
	c.buffer = stat
	c.mx.Unlock()
	if changed {
		c.emit(Event{Kind: EventBuffer, Buffer: stat})
	}
}

func (c *Conn) readLoop() {
	defer c.wg.Done()

	scan := bufio.NewScanner(c.rw)
	scan.Buffer(make([]byte, 4096), maxLineLength)
	for scan.Scan() {
		line := bytes.TrimSpace(scan.Bytes())
		if len(line) == 0 {
			continue
		}
		c.log.Debug("received", "line", string(line))

		msg, err := ParseMessage(line)
		if err != nil {
			c.log.Warn("skipping malformed line", "err", err)
			continue
		}

		switch msg.Kind {
		case KindSystemReady:
			c.log.Info("reboot complete", "response", string(msg.Raw))
			select {
			case c.readyCh <- msg:
			default:
			}
		case KindResponse:
			if msg.Invalid != nil {
				c.log.Warn("malformed response", "response", string(msg.Raw), "err", msg.Invalid)
			}
			if msg.Probe != nil {
				c.emit(Event{Kind: EventProbe, Probe: msg.Probe, Message: msg})
			}
			select {
			case c.ackCh <- msg:
			case <-c.closeCh:
				return
			}
		case KindStatus:
			c.emit(Event{Kind: EventStatus, Status: msg.Status, Message: msg})
		case KindQueue:
			c.emit(Event{Kind: EventQueue, Queue: msg.Queue, Message: msg})
		case KindRX:
			c.log.Debug("rx received", "message", string(msg.Raw))
		case KindProbe:
			c.emit(Event{Kind: EventProbe, Probe: msg.Probe, Message: msg})
		default:
			c.log.Warn("unknown message received", "message", string(msg.Raw))
			c.emit(Event{Kind: EventUnknown, Message: msg})
		}
	}

	select {
	case <-c.closeCh:
	default:
		if err := scan.Err(); err != nil {
			c.log.Error("read from port", "err", err)
		} else {
			c.log.Warn("port closed by controller")
		}
	}
}
