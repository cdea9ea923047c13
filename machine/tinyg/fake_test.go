package tinyg

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

const waitTimeout = 2 * time.Second

func quietLogger() *log.Logger { return log.New(io.Discard) }

// fakePort is the host end of an in-memory serial line.
type fakePort struct {
	in  *io.PipeReader
	out *io.PipeWriter

	mx     sync.Mutex
	buf    []byte
	closed bool
	lines  chan string
}

func newFakePort() *fakePort {
	r, w := io.Pipe()
	return &fakePort{in: r, out: w, lines: make(chan string, 1000)}
}

func (p *fakePort) Read(b []byte) (int, error) { return p.in.Read(b) }

func (p *fakePort) Write(b []byte) (int, error) {
	p.mx.Lock()
	defer p.mx.Unlock()
	if p.closed {
		return 0, io.ErrClosedPipe
	}
	p.buf = append(p.buf, b...)
	for {
		i := bytes.IndexByte(p.buf, '\n')
		if i < 0 {
			break
		}
		p.lines <- string(p.buf[:i])
		p.buf = p.buf[i+1:]
	}
	return len(b), nil
}

func (p *fakePort) Close() error {
	p.mx.Lock()
	defer p.mx.Unlock()
	if !p.closed {
		p.closed = true
		p.in.Close()
		p.out.Close()
	}
	return nil
}

// reply writes a line as the controller.
func (p *fakePort) reply(t *testing.T, line string) {
	t.Helper()
	_, err := io.WriteString(p.out, line+"\n")
	if err != nil {
		t.Errorf("reply %s: %v", line, err)
	}
}

// expect returns the next line written by the host.
func (p *fakePort) expect(t *testing.T) string {
	t.Helper()
	select {
	case line := <-p.lines:
		return line
	case <-time.After(waitTimeout):
		t.Errorf("no line written")
		return ""
	}
}

func (p *fakePort) expectNone(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case line := <-p.lines:
		t.Errorf("unexpected line %q", line)
	case <-time.After(d):
	}
}

// controller answers every line like a TinyG would.
type controller struct {
	port *fakePort

	mx     sync.Mutex
	status map[string]float64
	sent   []string

	// probeZ is reported after every G38.2 when set.
	probeZ *float64
}

func newController(p *fakePort, status map[string]float64) *controller {
	c := &controller{port: p, status: status}
	go c.run()
	return c
}

func (c *controller) run() {
	for line := range c.port.lines {
		c.mx.Lock()
		c.sent = append(c.sent, line)
		c.mx.Unlock()

		switch line {
		case "\x18":
			c.write(`{"r":{"fv":0.97,"fb":440.2,"msg":"SYSTEM READY"},"f":[1,0,0]}`)
			continue
		case "!", "~", "!%":
			continue
		}

		var cmd map[string]json.RawMessage
		if json.Unmarshal([]byte(line), &cmd) != nil {
			continue
		}
		r := map[string]interface{}{}
		for k, v := range cmd {
			r[k] = v
			if k == "sr" && string(v) == "null" {
				c.mx.Lock()
				r[k] = c.status
				c.mx.Unlock()
			}
		}
		data, _ := json.Marshal(map[string]interface{}{"r": r, "f": []int{1, 0, len(line)}})
		c.write(string(data))

		c.mx.Lock()
		if c.probeZ != nil && strings.Contains(line, "G38.2") {
			data, _ = json.Marshal(map[string]interface{}{"prb": map[string]interface{}{
				"e": 1, "x": c.status["posx"], "y": c.status["posy"], "z": *c.probeZ,
			}})
			c.write(string(data))
		}
		c.mx.Unlock()
	}
}

func (c *controller) setProbeZ(z float64) {
	c.mx.Lock()
	defer c.mx.Unlock()
	c.probeZ = &z
}

func (c *controller) write(line string) {
	_, _ = io.WriteString(c.port.out, line+"\n")
}

func (c *controller) lines() []string {
	c.mx.Lock()
	defer c.mx.Unlock()
	return append([]string(nil), c.sent...)
}
