package tinyg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessage(t *testing.T) {
	cases := []struct {
		line string
		kind Kind
	}{
		{`{"r":{"gc":"G1X1"},"f":[1,0,9]}`, KindResponse},
		{`{"r":{"fv":0.97,"msg":"SYSTEM READY"},"f":[1,0,0]}`, KindSystemReady},
		{`{"r":{"msg":"loading"},"f":[1,0,0]}`, KindResponse},
		{`{"sr":{"posx":1,"stat":5}}`, KindStatus},
		{`{"qr":12}`, KindQueue},
		{`{"rx":254}`, KindRX},
		{`{"prb":{"e":1,"x":1,"y":2,"z":-3.5}}`, KindProbe},
		{`{"er":{"fb":440.2,"st":27}}`, KindUnknown},
	}
	for _, c := range cases {
		t.Run(c.line, func(t *testing.T) {
			msg, err := ParseMessage([]byte(c.line + "\r\n"))
			require.NoError(t, err)
			assert.Equal(t, c.kind, msg.Kind)
			assert.Equal(t, c.line, string(msg.Raw))
		})
	}

	for _, line := range []string{"", "ok", `{"sr":[1,2]}`} {
		_, err := ParseMessage([]byte(line))
		assert.Error(t, err, line)
	}
}

func TestParseMessage_Probe(t *testing.T) {
	msg, err := ParseMessage([]byte(`{"prb":{"e":1,"x":10,"y":20,"z":-41.25,"a":0}}`))
	require.NoError(t, err)
	assert.Equal(t, &ProbeReport{E: 1, X: 10, Y: 20, Z: -41.25}, msg.Probe)

	msg, err = ParseMessage([]byte(`{"r":{"prb":{"e":0,"x":1,"y":2,"z":-50}},"f":[1,0,0]}`))
	require.NoError(t, err)
	assert.Equal(t, KindResponse, msg.Kind)
	assert.Equal(t, &ProbeReport{E: 0, X: 1, Y: 2, Z: -50}, msg.Probe)

	_, err = ParseMessage([]byte(`{"prb":1}`))
	assert.Error(t, err)
}

func TestParseMessage_InvalidResponse(t *testing.T) {
	// a response is always an acknowledgement, even when parts are garbled
	cases := []struct {
		line string
		err  string
	}{
		{`{"r":{"gc":"G1X1"},"f":"garbage"}`, "decode footer"},
		{`{"r":1,"f":[1,0,4]}`, "decode response"},
		{`{"r":{"prb":true},"f":[1,0,4]}`, "decode probe report"},
	}
	for _, c := range cases {
		msg, err := ParseMessage([]byte(c.line))
		require.NoError(t, err, c.line)
		assert.Equal(t, KindResponse, msg.Kind, c.line)
		assert.ErrorContains(t, msg.Invalid, c.err, c.line)
		assert.Nil(t, msg.Probe, c.line)
	}

	msg, err := ParseMessage([]byte(`{"r":{"gc":"G1X1"},"f":"garbage"}`))
	require.NoError(t, err)
	assert.True(t, msg.Has("gc"))
	assert.Equal(t, 0, msg.StatusCode())

	msg, err = ParseMessage([]byte(`{"r":{"gc":"G1X1"},"f":[1,0,9]}`))
	require.NoError(t, err)
	assert.NoError(t, msg.Invalid)
}

func TestMessage_StatusCode(t *testing.T) {
	msg, err := ParseMessage([]byte(`{"r":{"gc":"G1X0.0001"},"f":[1,201,14]}`))
	require.NoError(t, err)
	assert.Equal(t, MinorWarning, msg.StatusCode())
	assert.True(t, msg.Has("gc"))
	assert.False(t, msg.Has("sr"))

	var gc string
	require.NoError(t, msg.Decode("gc", &gc))
	assert.Equal(t, "G1X0.0001", gc)
	assert.Error(t, msg.Decode("sr", &gc))

	assert.Equal(t, 0, (&Message{}).StatusCode())
}

func TestCommand(t *testing.T) {
	assert.Equal(t, `{"gc":"G1F1000X10Y20"}`, GCode("G1F1000X10Y20").String())
	assert.Equal(t, `{"sr":null}`, Command{Key: "sr"}.String())
	assert.Equal(t, `{"si":200}`, Command{Key: "si", Value: 200}.String())
}

func TestStatusMessage(t *testing.T) {
	cases := []struct {
		kind string
		code int
		want string
	}{
		{"stat", 4, "Program end"},
		{"stat", 10, "Machine in hard alarm state"},
		{"stat", 11, "Unknown"},
		{"coor", 2, "G55"},
		{"frmo", 2, "G95(u/rev)"},
		{"footer", 0, "OK"},
		{"error", 0, "Unknown"},
		{"hold", 4, "Feedhold holding"},
	}
	for _, c := range cases {
		msg, err := StatusMessage(c.kind, c.code)
		require.NoError(t, err)
		assert.Equal(t, c.want, msg, "%s %d", c.kind, c.code)
	}

	_, err := StatusMessage("stat", -1)
	assert.Error(t, err)
	_, err = StatusMessage("nope", 0)
	assert.Error(t, err)
}
