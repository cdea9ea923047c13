package meshlevel

import (
	"errors"
	"io"
	"math"

	"github.com/mastercactapus/pcbmill/coord"
	"github.com/mastercactapus/pcbmill/gcode"
)

// MeshLeveler adjusts Z of the blocks read from a gcode.Reader to follow
// a probed surface. Linear moves longer than the granularity are split;
// arcs only get their end height adjusted.
type MeshLeveler struct {
	granularity float64
	offsetter   ZOffsetter

	// segments of a split move not yet returned
	pending []gcode.Block

	splitVM *gcode.VM
	levelVM *gcode.VM

	gr gcode.Reader
}

type Config struct {
	ZOffsetter  ZOffsetter
	Granularity float64

	// Start is the workpiece position before the first block.
	Start coord.Point

	Reader gcode.Reader
}

func New(cfg Config) *MeshLeveler {
	l := &MeshLeveler{
		splitVM: gcode.NewVM(cfg.Start),
		levelVM: gcode.NewVM(cfg.Start),

		granularity: cfg.Granularity,
		gr:          cfg.Reader,

		offsetter: cfg.ZOffsetter,
	}
	if l.offsetter == nil {
		l.offsetter = flatSurface{}
	}
	return l
}

func (l *MeshLeveler) offset(p coord.Point) float64 {
	ok, z := l.offsetter.OffsetZ(p.XY())
	if !ok {
		return 0
	}
	return z
}

func (l *MeshLeveler) Read() (gcode.Block, error) {
	b, err := l.next()
	if err != nil {
		return nil, err
	}

	oldPos := l.levelVM.Pos()
	err = l.levelVM.Run(b)
	if err != nil {
		return nil, err
	}
	newPos := l.levelVM.Pos()
	hasZ, _ := b.Arg('Z')
	if !hasZ && oldPos.Equal(newPos) {
		return b, nil
	}

	oldOffset := l.offset(oldPos)
	newOffset := l.offset(newPos)

	if l.levelVM.Relative() {
		dz := newPos.Z - oldPos.Z + newOffset - oldOffset
		if !hasZ && dz == 0 {
			return b, nil
		}
		return b.Clone().WithArg('Z', dz), nil
	}

	if !hasZ && newOffset == oldOffset {
		return b, nil
	}
	return b.Clone().WithArg('Z', newPos.Z+newOffset), nil
}

func (l *MeshLeveler) next() (gcode.Block, error) {
	if len(l.pending) > 0 {
		b := l.pending[0]
		l.pending = l.pending[1:]
		return b, nil
	}

	b, err := l.gr.Read()
	if err != nil {
		return nil, err
	}

	from := l.splitVM.Pos()
	err = l.splitVM.Run(b)
	if err != nil {
		return nil, err
	}
	if l.granularity <= 0 || l.splitVM.Arc() {
		return b, nil
	}
	to := l.splitVM.Pos()
	dist := from.DistanceXY(to.XY())
	if dist <= l.granularity {
		return b, nil
	}

	l.pending = split(b, from, to, int(math.Ceil(dist/l.granularity)), l.splitVM.Relative())
	return l.next()
}

// split divides the linear move b from one point to another into n
// equal segments. The X, Y and Z words present in b are rewritten;
// missing axes stay unchanged.
func split(b gcode.Block, from, to coord.Point, n int, relative bool) []gcode.Block {
	step := to.Sub(from).Div(float64(n))
	res := make([]gcode.Block, 0, n)
	for i := 1; i <= n; i++ {
		p := step
		if !relative {
			p = from.Add(step.Mul(float64(i)))
		}
		seg := b.Clone()
		seg.SetArg('X', p.X)
		seg.SetArg('Y', p.Y)
		seg.SetArg('Z', p.Z)
		res = append(res, seg)
	}
	return res
}

// Level runs cmds through a MeshLeveler and returns the leveled
// commands, one block per entry.
func Level(surface ZOffsetter, granularity float64, start coord.Point, cmds []string) ([]string, error) {
	blocks, err := gcode.ParseLines(cmds)
	if err != nil {
		return nil, err
	}

	l := New(Config{
		ZOffsetter:  surface,
		Granularity: granularity,
		Start:       start,
		Reader:      &gcode.BlocksReader{Blocks: blocks},
	})

	res := make([]string, 0, len(blocks))
	for {
		b, err := l.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		res = append(res, b.String())
	}
	return res, nil
}
