package machine

import "io"

// An Adapter opens the transport to a controller. Every call returns a
// fresh connection; the caller owns and closes it.
type Adapter interface {
	Open() (io.ReadWriteCloser, error)
}

// AdapterFunc adapts a function to the Adapter interface.
type AdapterFunc func() (io.ReadWriteCloser, error)

func (fn AdapterFunc) Open() (io.ReadWriteCloser, error) { return fn() }
