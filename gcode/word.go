package gcode

import (
	"strconv"
	"strings"
)

type Word struct {
	W   byte
	Arg float64
}

// Precision is the number of decimals written for word arguments.
const Precision = 4

func (w Word) IsAxis() bool {
	switch w.W {
	case 'X', 'Y', 'Z':
		return true
	}
	return false
}

// IsArcOffset reports whether w is an arc center offset (I, J, K).
func (w Word) IsArcOffset() bool {
	switch w.W {
	case 'I', 'J', 'K':
		return true
	}
	return false
}

func (w Word) IsValid() bool {
	return w.W >= 'A' && w.W <= 'Z'
}

func formatFloat(f float64, prec int) string {
	s := strconv.FormatFloat(f, 'f', prec, 64)
	if strings.ContainsRune(s, '.') {
		s = strings.TrimRight(s, "0")
	}
	s = strings.TrimRight(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}

func (w Word) String() string {
	return string(w.W) + formatFloat(w.Arg, Precision)
}

func G(n float64) Word { return Word{W: 'G', Arg: n} }
func M(n float64) Word { return Word{W: 'M', Arg: n} }
func F(n float64) Word { return Word{W: 'F', Arg: n} }
func X(n float64) Word { return Word{W: 'X', Arg: n} }
func Y(n float64) Word { return Word{W: 'Y', Arg: n} }
func Z(n float64) Word { return Word{W: 'Z', Arg: n} }
func I(n float64) Word { return Word{W: 'I', Arg: n} }
func J(n float64) Word { return Word{W: 'J', Arg: n} }
