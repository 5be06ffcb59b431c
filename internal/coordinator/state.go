package coordinator

import "github.com/pinmap/pinstate/internal/marker"

// GroupState is the state of the whole marker cluster.
type GroupState int

const (
	Collapsed GroupState = iota
	Spiderfied
)

func (g GroupState) String() string {
	if g == Spiderfied {
		return "spiderfied"
	}
	return "collapsed"
}

// MarkerState is the visual state of a single marker.
type MarkerState int

const (
	Idle MarkerState = iota
	Hovered
	Clicked
	SpiderfiedMember
	Faded
)

func (s MarkerState) String() string {
	switch s {
	case Hovered:
		return "hovered"
	case Clicked:
		return "clicked"
	case SpiderfiedMember:
		return "spiderfied"
	case Faded:
		return "faded"
	default:
		return "idle"
	}
}

// Layers are the z-index values markers move between.
type Layers struct {
	Idle       int
	Hover      int
	Faded      int
	Spiderfied int
}

// DefaultLayers returns the standard stacking order.
func DefaultLayers() Layers {
	return Layers{
		Idle:       100,
		Hover:      10000,
		Faded:      1000,
		Spiderfied: 20000,
	}
}

// pin is the coordinator's view of one marker.
type pin struct {
	hovered bool
	member  bool // part of the spiderfied subset

	// zOverride pins the z-index after a proxy hover that ignores the group.
	// Zero means none.
	zOverride int
}

// visual is everything needed to render one marker's label and stacking.
type visual struct {
	pin
	group    GroupState
	suppress bool // hover does not raise the z-index
}

// flags maps a visual state to its label flags.
func (v visual) flags() marker.Flags {
	var f marker.Flags
	if v.hovered {
		f = f.With(marker.Hovered)
	}
	if v.group == Spiderfied {
		if v.member {
			f = f.With(marker.Spiderfied)
		} else {
			f = f.With(marker.Faded)
		}
	}
	return f
}

// baseline is the z-index a marker rests at when not hovered.
func (v visual) baseline(l Layers) int {
	switch {
	case v.group == Spiderfied && v.member:
		return l.Spiderfied
	case v.group == Spiderfied:
		return l.Faded
	default:
		return l.Idle
	}
}

// zIndex maps a visual state to its z-index.
func (v visual) zIndex(l Layers) int {
	if v.zOverride != 0 {
		return v.zOverride
	}
	if v.hovered && !v.suppress {
		return max(l.Hover, v.baseline(l))
	}
	return v.baseline(l)
}
