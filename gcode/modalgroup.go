package gcode

// ModalGroup is the group of mutually exclusive codes a word belongs to.
// At most one word of a group may appear in a block.
type ModalGroup byte

const (
	ModalGroupNone ModalGroup = iota
	// ModalGroupNonModal codes only affect the block they appear in.
	ModalGroupNonModal
	ModalGroupMotion
	ModalGroupPlaneSelection
	ModalGroupDistanceMode
	ModalGroupArcDistanceMode
	ModalGroupFeedRateMode
	ModalGroupUnits
	ModalGroupCoordinateSystem
	ModalGroupPathControl
	ModalGroupStopping
	ModalGroupSpindle
	ModalGroupCoolant
	ModalGroupFeedRate
)

// codes understood by the TinyG g-code interpreter
var gGroups = map[float64]ModalGroup{
	4: ModalGroupNonModal, 10: ModalGroupNonModal, 28: ModalGroupNonModal, 28.1: ModalGroupNonModal,
	28.2: ModalGroupNonModal, 28.3: ModalGroupNonModal, 30: ModalGroupNonModal, 53: ModalGroupNonModal,
	92: ModalGroupNonModal, 92.1: ModalGroupNonModal, 92.2: ModalGroupNonModal, 92.3: ModalGroupNonModal,

	0: ModalGroupMotion, 1: ModalGroupMotion, 2: ModalGroupMotion, 3: ModalGroupMotion,
	38.2: ModalGroupMotion, 80: ModalGroupMotion,

	17: ModalGroupPlaneSelection, 18: ModalGroupPlaneSelection, 19: ModalGroupPlaneSelection,
	90: ModalGroupDistanceMode, 91: ModalGroupDistanceMode,
	90.1: ModalGroupArcDistanceMode, 91.1: ModalGroupArcDistanceMode,
	93: ModalGroupFeedRateMode, 94: ModalGroupFeedRateMode,
	20: ModalGroupUnits, 21: ModalGroupUnits,

	54: ModalGroupCoordinateSystem, 55: ModalGroupCoordinateSystem, 56: ModalGroupCoordinateSystem,
	57: ModalGroupCoordinateSystem, 58: ModalGroupCoordinateSystem, 59: ModalGroupCoordinateSystem,

	61: ModalGroupPathControl, 61.1: ModalGroupPathControl, 64: ModalGroupPathControl,
}

var mGroups = map[float64]ModalGroup{
	0: ModalGroupStopping, 1: ModalGroupStopping, 2: ModalGroupStopping, 30: ModalGroupStopping, 60: ModalGroupStopping,
	3: ModalGroupSpindle, 4: ModalGroupSpindle, 5: ModalGroupSpindle,
	7: ModalGroupCoolant, 8: ModalGroupCoolant, 9: ModalGroupCoolant,
}

func (w Word) ModalGroup() ModalGroup {
	switch w.W {
	case 'G':
		return gGroups[w.Arg]
	case 'M':
		return mGroups[w.Arg]
	case 'F':
		return ModalGroupFeedRate
	}
	return ModalGroupNone
}
