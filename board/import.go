package board

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/charmbracelet/log"
	"github.com/mastercactapus/pcbmill/coord"
	"github.com/mastercactapus/pcbmill/machining"
	"github.com/mastercactapus/pcbmill/optimize"
)

// Description is a parsed board layout, in absolute board coordinates (mm).
type Description struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	Drills  []Drill  `json:"drills"`
	Lines   []Line   `json:"lines"`
	Circles []Circle `json:"circles"`
}

// Drill covers holes, pads and vias.
type Drill struct {
	Diameter float64 `json:"diameter"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// Line is a milling segment. A non-zero Curve (degrees) makes it an arc
// with that opening angle; positive is counterclockwise.
type Line struct {
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	X2    float64 `json:"x2"`
	Y2    float64 `json:"y2"`
	Curve float64 `json:"curve,omitempty"`
}

// Circle is a full circle milling.
type Circle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
}

// ReadDescription decodes a JSON board description.
func ReadDescription(r io.Reader) (*Description, error) {
	var d Description
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("decode board: %w", err)
	}
	return &d, nil
}

// LoadDescription reads a JSON board description from a file.
func LoadDescription(path string) (*Description, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadDescription(f)
}

// Import creates a workpiece from a board description. Every line and
// circle becomes its own milling; combining them is left to the optimizers.
func Import(d *Description, set optimize.Set) (*Workpiece, error) {
	w := NewWorkpiece(coord.Vec{X: d.Width, Y: d.Height}, set)

	for _, dr := range d.Drills {
		w.AppendHole(&machining.Hole{Diameter: dr.Diameter, Center: coord.Vec{X: dr.X, Y: dr.Y}})
	}

	for i, l := range d.Lines {
		start, end := coord.Vec{X: l.X1, Y: l.Y1}, coord.Vec{X: l.X2, Y: l.Y2}
		p := machining.NewStraight(start, end)
		if l.Curve != 0 {
			var err error
			p, err = machining.NewArcFromChord(start, end, math.Abs(coord.DegToRad(l.Curve)), l.Curve > 0)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i, err)
			}
		}
		w.AppendMilling(&machining.Milling{Paths: []*machining.Path{p}})
	}

	for _, c := range d.Circles {
		p := machining.NewCircle(c.Radius, coord.Vec{X: c.X, Y: c.Y})
		w.AppendMilling(&machining.Milling{Paths: []*machining.Path{p}})
	}

	log.Debug("imported board", "holes", w.Holes.Len(), "millings", w.Millings.Len(), "width", d.Width, "height", d.Height)
	return w, nil
}
