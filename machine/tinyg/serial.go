package tinyg

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/mastercactapus/pcbmill/machine"
	"github.com/tarm/serial"
)

// DefaultBaud is the factory baud rate of the TinyG.
const DefaultBaud = 115200

const serialReadTimeout = 100 * time.Millisecond

type serialPort struct {
	*serial.Port
	closed int32
}

// Read blocks until data arrives or the port is closed; read timeouts of
// the driver are retried.
func (p *serialPort) Read(b []byte) (int, error) {
	for {
		n, err := p.Port.Read(b)
		if n == 0 && (err == nil || err == io.EOF) {
			if atomic.LoadInt32(&p.closed) == 1 {
				return 0, io.EOF
			}
			continue
		}
		return n, err
	}
}

func (p *serialPort) Close() error {
	atomic.StoreInt32(&p.closed, 1)
	return p.Port.Close()
}

// OpenSerial opens name with 8-N-1 framing.
func OpenSerial(name string, baud int) (io.ReadWriteCloser, error) {
	if baud == 0 {
		baud = DefaultBaud
	}
	p, err := serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: serialReadTimeout,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	err = p.Flush()
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("flush serial port %s: %w", name, err)
	}

	return &serialPort{Port: p}, nil
}

// SerialAdapter opens a serial port on every call to Open.
func SerialAdapter(name string, baud int) machine.Adapter {
	return machine.AdapterFunc(func() (io.ReadWriteCloser, error) {
		return OpenSerial(name, baud)
	})
}
