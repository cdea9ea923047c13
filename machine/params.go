package machine

import "github.com/mastercactapus/pcbmill/coord"

// Params are the machine parameters shared by all controllers.
// Speeds are in mm/min, lengths in mm.
type Params struct {
	JogSpeedXY   float64 `toml:"jog_speed_xy" json:"jogSpeedXY"`
	JogSpeedZ    float64 `toml:"jog_speed_z" json:"jogSpeedZ"`
	MillSpeedXY  float64 `toml:"mill_speed_xy" json:"millSpeedXY"`
	InfeedSpeed  float64 `toml:"infeed_speed" json:"infeedSpeed"`
	OutfeedSpeed float64 `toml:"outfeed_speed" json:"outfeedSpeed"`
	InfeedDepth  float64 `toml:"infeed_depth" json:"infeedDepth"`
	ToolDiameter float64 `toml:"tool_diameter" json:"toolDiameter"`

	LaserOffset   coord.Vec   `toml:"laser_offset" json:"laserOffset"`
	ParkPosition  coord.Point `toml:"park_position" json:"parkPosition"`
	DefaultOrigin coord.Point `toml:"default_origin" json:"defaultOrigin"`
}

func DefaultParams() Params {
	return Params{
		JogSpeedXY:   1000,
		JogSpeedZ:    1000,
		MillSpeedXY:  60,
		InfeedSpeed:  400,
		OutfeedSpeed: 1000,
		InfeedDepth:  3,
		ToolDiameter: 0.85,
	}
}
