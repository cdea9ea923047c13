package tinyg

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Kind classifies a line received from the controller.
type Kind int

const (
	KindUnknown Kind = iota
	// KindResponse acknowledges one line sent to the controller.
	KindResponse
	// KindSystemReady is sent once after a reset.
	KindSystemReady
	KindStatus
	KindQueue
	KindRX
	KindProbe
)

func (k Kind) String() string {
	switch k {
	case KindResponse:
		return "r"
	case KindSystemReady:
		return "system-ready"
	case KindStatus:
		return "sr"
	case KindQueue:
		return "qr"
	case KindRX:
		return "rx"
	case KindProbe:
		return "prb"
	}
	return "unknown"
}

// MinorWarning is the footer status code (minimum length move) that is
// logged as a warning only.
const MinorWarning = 201

// Message is one decoded JSON line from the controller.
type Message struct {
	Kind Kind

	// Response is the "r" object of KindResponse and KindSystemReady.
	Response map[string]json.RawMessage

	// Footer is the "f" array: revision, status code, rx bytes, checksum.
	Footer []int

	// Status holds the fields of a status report.
	Status map[string]float64

	Queue int

	// Probe is set by a probe report, standalone or inside a response.
	Probe *ProbeReport

	// Invalid is the decode error of a response part. The line still
	// acknowledges a sent line.
	Invalid error

	Raw []byte
}

// ProbeReport is the "prb" object sent when a G38.2 probe ends.
type ProbeReport struct {
	// E is 1 if the probe triggered.
	E int     `json:"e"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// StatusCode returns the footer status code, 0 if there is none.
func (m *Message) StatusCode() int {
	if len(m.Footer) < 2 {
		return 0
	}
	return m.Footer[1]
}

// Has reports whether the response contains key.
func (m *Message) Has(key string) bool {
	_, ok := m.Response[key]
	return ok
}

// Decode unmarshals the response value of key into v.
func (m *Message) Decode(key string, v interface{}) error {
	raw, ok := m.Response[key]
	if !ok {
		return fmt.Errorf("response has no %q", key)
	}
	return json.Unmarshal(raw, v)
}

func (m *Message) decodeResponse(r, f json.RawMessage) error {
	var errs []error
	err := json.Unmarshal(r, &m.Response)
	if err != nil {
		m.Response = nil
		errs = append(errs, fmt.Errorf("decode response: %w", err))
	}
	if f != nil {
		err = json.Unmarshal(f, &m.Footer)
		if err != nil {
			m.Footer = nil
			errs = append(errs, fmt.Errorf("decode footer: %w", err))
		}
	}
	if raw := m.Response["prb"]; raw != nil {
		p := new(ProbeReport)
		err = json.Unmarshal(raw, p)
		if err != nil {
			errs = append(errs, fmt.Errorf("decode probe report: %w", err))
		} else {
			m.Probe = p
		}
	}
	return errors.Join(errs...)
}

// ParseMessage classifies and decodes a single line.
func ParseMessage(line []byte) (*Message, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, errors.New("empty line")
	}

	var top map[string]json.RawMessage
	err := json.Unmarshal(line, &top)
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", line, err)
	}

	m := &Message{Raw: append([]byte(nil), line...)}
	switch {
	case top["r"] != nil:
		m.Kind = KindResponse
		m.Invalid = m.decodeResponse(top["r"], top["f"])
		var msg string
		if m.Has("msg") && m.Decode("msg", &msg) == nil && msg == "SYSTEM READY" {
			m.Kind = KindSystemReady
		}
	case top["sr"] != nil:
		m.Kind = KindStatus
		err = json.Unmarshal(top["sr"], &m.Status)
		if err != nil {
			return nil, fmt.Errorf("decode status report: %w", err)
		}
	case top["qr"] != nil:
		m.Kind = KindQueue
		err = json.Unmarshal(top["qr"], &m.Queue)
		if err != nil {
			return nil, fmt.Errorf("decode queue report: %w", err)
		}
	case top["rx"] != nil:
		m.Kind = KindRX
	case top["prb"] != nil:
		m.Kind = KindProbe
		m.Probe = new(ProbeReport)
		err = json.Unmarshal(top["prb"], m.Probe)
		if err != nil {
			return nil, fmt.Errorf("decode probe report: %w", err)
		}
	default:
		m.Kind = KindUnknown
	}

	return m, nil
}

// Command is a single key JSON object sent to the controller,
// e.g. {"gc":"G1F1000X10Y20"}.
type Command struct {
	Key   string
	Value interface{}
}

// GCode wraps a g-code line in a "gc" command.
func GCode(line string) Command { return Command{Key: "gc", Value: line} }

func (c Command) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{c.Key: c.Value})
}

func (c Command) String() string {
	data, err := json.Marshal(c)
	if err != nil {
		return c.Key
	}
	return string(data)
}
