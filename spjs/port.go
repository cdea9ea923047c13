package spjs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/mastercactapus/pcbmill/machine"
)

// BufferAlgorithm is the server side buffer used for opened ports.
const BufferAlgorithm = "tinyg"

// DefaultOpenTimeout limits how long Adapter waits for the server.
const DefaultOpenTimeout = 10 * time.Second

// Port is a serial port opened through the server. Lines written to it
// are queued with sendjson, single realtime characters bypass the
// server queue.
type Port struct {
	c    *Client
	name string
	baud int

	mx      sync.Mutex
	cond    *sync.Cond
	pending []byte
	closed  bool
}

var _ io.ReadWriteCloser = (*Port)(nil)

// Open asks the server to open name and registers the returned port for
// incoming data.
func (c *Client) Open(ctx context.Context, name string, baud int) (*Port, error) {
	p := &Port{c: c, name: name, baud: baud}
	p.cond = sync.NewCond(&p.mx)

	c.mx.Lock()
	if c.ports[name] != nil {
		c.mx.Unlock()
		return nil, fmt.Errorf("open %s: port already open", name)
	}
	c.ports[name] = p
	c.mx.Unlock()

	err := c.WriteString(ctx, p.openCommand())
	if err != nil {
		c.unregister(p)
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return p, nil
}

// Adapter opens name through c on every call to Open.
func Adapter(c *Client, name string, baud int) machine.Adapter {
	return machine.AdapterFunc(func() (io.ReadWriteCloser, error) {
		ctx, cancel := context.WithTimeout(context.Background(), DefaultOpenTimeout)
		defer cancel()
		return c.Open(ctx, name, baud)
	})
}

func (c *Client) unregister(p *Port) {
	c.mx.Lock()
	defer c.mx.Unlock()
	if c.ports[p.name] == p {
		delete(c.ports, p.name)
	}
}

func (p *Port) openCommand() string {
	return "open " + p.name + " " + strconv.Itoa(p.baud) + " " + BufferAlgorithm
}

func (p *Port) Name() string { return p.name }

func (p *Port) deliver(data []byte) {
	p.mx.Lock()
	defer p.mx.Unlock()
	if p.closed {
		return
	}
	p.pending = append(p.pending, data...)
	p.cond.Broadcast()
}

func (p *Port) Read(b []byte) (int, error) {
	p.mx.Lock()
	defer p.mx.Unlock()
	for len(p.pending) == 0 && !p.closed {
		p.cond.Wait()
	}
	if len(p.pending) == 0 {
		return 0, io.EOF
	}
	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

func isRealtime(line string) bool {
	switch line {
	case "!", "~", "%", "!%", "\x18":
		return true
	}
	return false
}

func (p *Port) Write(b []byte) (int, error) {
	p.mx.Lock()
	closed := p.closed
	p.mx.Unlock()
	if closed {
		return 0, ErrClosed
	}

	ctx := context.Background()
	j := JSON{Port: p.name}
	for _, line := range bytes.SplitAfter(b, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		if s := string(bytes.TrimSuffix(line, []byte("\n"))); isRealtime(s) {
			err := p.c.WriteString(ctx, "sendnobuf "+p.name+" "+s)
			if err != nil {
				return 0, err
			}
			continue
		}
		j.Data = append(j.Data, Data{Data: string(line), ID: nextID()})
	}
	if len(j.Data) > 0 {
		err := p.c.SendJSON(ctx, j)
		if err != nil {
			return 0, err
		}
	}
	return len(b), nil
}

func (p *Port) shutdown() {
	p.mx.Lock()
	defer p.mx.Unlock()
	p.closed = true
	p.cond.Broadcast()
}

// Close releases the port on the server and unblocks pending reads.
func (p *Port) Close() error {
	p.mx.Lock()
	if p.closed {
		p.mx.Unlock()
		return nil
	}
	p.closed = true
	p.cond.Broadcast()
	p.mx.Unlock()

	p.c.unregister(p)
	err := p.c.WriteString(context.Background(), "close "+p.name)
	if errors.Is(err, ErrClosed) {
		return nil
	}
	return err
}
