package gcode

import (
	"fmt"
	"strings"
)

// Block is a single line of g-code.
type Block []Word

// String writes the block without separators, e.g. "G1F1000X10Y20".
func (b Block) String() string {
	var sb strings.Builder
	for _, w := range b {
		sb.WriteString(w.String())
	}
	return sb.String()
}

func (b Block) index(letter byte) int {
	for i, w := range b {
		if w.W == letter {
			return i
		}
	}
	return -1
}

// Has reports whether the block contains exactly the word w.
func (b Block) Has(w Word) bool {
	for _, g := range b {
		if g == w {
			return true
		}
	}
	return false
}

// Arg returns the argument of the first word with the given letter.
func (b Block) Arg(letter byte) (bool, float64) {
	i := b.index(letter)
	if i == -1 {
		return false, 0
	}
	return true, b[i].Arg
}

// SetArg replaces the argument of letter in place. The block is
// unchanged if it has no such word.
func (b Block) SetArg(letter byte, val float64) {
	if i := b.index(letter); i != -1 {
		b[i].Arg = val
	}
}

// WithArg sets the argument of letter, appending a word if it is missing.
func (b Block) WithArg(letter byte, val float64) Block {
	if i := b.index(letter); i != -1 {
		b[i].Arg = val
		return b
	}
	return append(b, Word{W: letter, Arg: val})
}

func (b Block) Clone() Block { return append(Block(nil), b...) }

// Validate checks that every word has a letter, that only G words repeat,
// and that no two words share a modal group.
func (b Block) Validate() error {
	letters := make(map[byte]bool, len(b))
	groups := make(map[ModalGroup]Word, len(b))
	for _, w := range b {
		if !w.IsValid() {
			return fmt.Errorf("invalid word %q", w.W)
		}
		if w.W != 'G' && letters[w.W] {
			return fmt.Errorf("word %c repeated in block", w.W)
		}
		letters[w.W] = true

		g := w.ModalGroup()
		if g == ModalGroupNone {
			continue
		}
		if prev, ok := groups[g]; ok {
			return fmt.Errorf("%s and %s are in the same modal group", prev, w)
		}
		groups[g] = w
	}
	return nil
}
