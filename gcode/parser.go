package gcode

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseError reports a line that is not valid g-code.
type ParseError struct {
	Line int
	Text string
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("gcode line %d %q: %s", e.Line, e.Text, e.Msg)
}

// Parser reads blocks from g-code text, one per non-empty line.
// Comments, both ";" and "(...)", spaces and line numbers are dropped.
type Parser struct {
	s    *bufio.Scanner
	line int
}

var _ Reader = &Parser{}

func NewParser(r io.Reader) *Parser {
	return &Parser{s: bufio.NewScanner(r)}
}

func (p *Parser) Read() (Block, error) {
	for p.s.Scan() {
		p.line++
		text := p.s.Text()
		b, err := parseLine(text)
		if err != nil {
			return nil, &ParseError{Line: p.line, Text: text, Msg: err.Error()}
		}
		if len(b) == 0 {
			continue
		}
		return b, nil
	}
	if err := p.s.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func stripComments(s string) (string, error) {
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	for {
		start := strings.IndexByte(s, '(')
		if start < 0 {
			break
		}
		end := strings.IndexByte(s[start:], ')')
		if end < 0 {
			return "", fmt.Errorf("unterminated comment")
		}
		s = s[:start] + s[start+end+1:]
	}
	return s, nil
}

func parseLine(s string) (Block, error) {
	s, err := stripComments(s)
	if err != nil {
		return nil, err
	}
	s = strings.ToUpper(strings.Join(strings.Fields(s), ""))

	var b Block
	for len(s) > 0 {
		letter := s[0]
		if letter < 'A' || letter > 'Z' {
			return nil, fmt.Errorf("unexpected %q", letter)
		}
		n := 1
		for n < len(s) && (s[n] == '-' || s[n] == '+' || s[n] == '.' || (s[n] >= '0' && s[n] <= '9')) {
			n++
		}
		if n == 1 {
			return nil, fmt.Errorf("word %c has no value", letter)
		}
		arg, err := strconv.ParseFloat(s[1:n], 64)
		if err != nil {
			return nil, fmt.Errorf("word %c: %w", letter, err)
		}
		s = s[n:]
		if letter == 'N' {
			continue
		}
		b = append(b, Word{W: letter, Arg: arg})
	}
	return b, nil
}
