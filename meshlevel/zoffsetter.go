package meshlevel

import "github.com/mastercactapus/pcbmill/coord"

// ZOffsetter reports the surface height at a workpiece position.
type ZOffsetter interface {
	OffsetZ(p coord.Vec) (bool, float64)
}

type flatSurface struct{}

func (flatSurface) OffsetZ(coord.Vec) (bool, float64) {
	return false, 0
}
