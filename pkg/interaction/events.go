package interaction

import (
	"time"

	"github.com/dd0wney/cluso-graphview/pkg/geometry"
)

const (
	// ClickTolerance is the screen distance a pointer may travel between down
	// and up and still count as a click.
	ClickTolerance = 3.0
	// DoubleClickWindow is the longest gap between two clicks on the same node
	// that still counts as a double click.
	DoubleClickWindow = 300 * time.Millisecond
	// WheelZoomRate converts wheel delta into a zoom factor.
	WheelZoomRate = 0.002
)

// PointerKind identifies a pointer event.
type PointerKind int

const (
	PointerDown PointerKind = iota
	PointerMove
	PointerUp
	PointerWheel
	PointerContextMenu
)

func (k PointerKind) String() string {
	switch k {
	case PointerDown:
		return "down"
	case PointerMove:
		return "move"
	case PointerUp:
		return "up"
	case PointerWheel:
		return "wheel"
	case PointerContextMenu:
		return "contextmenu"
	default:
		return "unknown"
	}
}

// PointerEvent is a pointer event in screen coordinates.
type PointerEvent struct {
	Kind   PointerKind
	X, Y   float64
	DeltaY float64
}

// Point returns the event position.
func (e PointerEvent) Point() geometry.Point {
	return geometry.Point{X: e.X, Y: e.Y}
}

// Key is a keyboard shortcut understood by the controller.
type Key int

const (
	KeyEscape Key = iota
	KeyLinkMode
)
