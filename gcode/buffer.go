package gcode

import (
	"bytes"
	"io"
)

// Buffer is an io.Reader rendering the blocks of a Reader as text, one
// block per line. A read error of the Reader is returned once the
// rendered text is consumed.
type Buffer struct {
	r   Reader
	buf bytes.Buffer
	err error
}

var _ io.Reader = &Buffer{}

func NewBuffer(r Reader) *Buffer { return &Buffer{r: r} }

func (b *Buffer) Read(p []byte) (int, error) {
	for b.err == nil && b.buf.Len() < len(p) {
		var block Block
		block, b.err = b.r.Read()
		if b.err != nil {
			break
		}
		b.buf.WriteString(block.String())
		b.buf.WriteByte('\n')
	}

	if b.buf.Len() > 0 {
		return b.buf.Read(p)
	}
	return 0, b.err
}
