package gcode

import "strings"

// Parse parses g-code text.
func Parse(data string) ([]Block, error) {
	return ReadAll(NewParser(strings.NewReader(data)))
}

// ParseLines parses one block per element of lines.
func ParseLines(lines []string) ([]Block, error) {
	return Parse(strings.Join(lines, "\n"))
}
