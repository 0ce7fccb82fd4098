package layout

import (
	"math"

	"github.com/golang/geo/r2"
)

// Hit-test tolerances, in board pixels and degrees.
const (
	CornerTolerance      = 15
	RotateHandleOffset   = 30
	RotateAngleTolerance = 10
)

// InteractionMode is the state of the placement state machine.
type InteractionMode int

const (
	ModeIdle InteractionMode = iota
	ModeMove
	ModeRotate
	ModeScaleTopLeft
	ModeScaleTopRight
	ModeScaleBottomRight
	ModeScaleBottomLeft
	ModeDrawCrop
)

func (m InteractionMode) String() string {
	switch m {
	case ModeMove:
		return "move"
	case ModeRotate:
		return "rotate"
	case ModeScaleTopLeft:
		return "scale-tl"
	case ModeScaleTopRight:
		return "scale-tr"
	case ModeScaleBottomRight:
		return "scale-br"
	case ModeScaleBottomLeft:
		return "scale-bl"
	case ModeDrawCrop:
		return "draw-crop"
	default:
		return "idle"
	}
}

// IsScale reports whether m is one of the four corner modes.
func (m InteractionMode) IsScale() bool {
	return m >= ModeScaleTopLeft && m <= ModeScaleBottomLeft
}

// PointerKind distinguishes pointer events.
type PointerKind int

const (
	PointerDown PointerKind = iota
	PointerMove
	PointerUp
)

// PointerEvent is a pointer sample in board pixels.
type PointerEvent struct {
	Kind PointerKind
	X, Y float64
}

// Interaction is the full state of a placement gesture. It is a value; Reduce
// returns an updated copy.
type Interaction struct {
	Mode        InteractionMode
	CropTool    bool // pointer-down starts a crop instead of hit testing
	ImageWidth  int
	ImageHeight int
	Placement   Placement
	Crop        CropRect

	start          r2.Point
	startPlacement Placement
}

// Reduce applies one pointer event.
//
//	down: idle -> hit-test result (or draw-crop with the crop tool)
//	move: mutate Placement or Crop according to the mode
//	up:   any -> idle
func Reduce(s Interaction, ev PointerEvent) (Interaction, Placement) {
	pt := r2.Point{X: ev.X, Y: ev.Y}

	switch ev.Kind {
	case PointerDown:
		s.start = pt
		s.startPlacement = s.Placement
		if s.CropTool {
			s.Mode = ModeDrawCrop
			s.Crop = CropRect{X: pt.X, Y: pt.Y}
		} else {
			s.Mode = HitTest(s.Placement, s.ImageWidth, s.ImageHeight, pt)
		}

	case PointerMove:
		s = s.drag(pt)

	case PointerUp:
		s.Mode = ModeIdle
	}
	return s, s.Placement
}

func (s Interaction) drag(pt r2.Point) Interaction {
	sp := s.startPlacement
	switch {
	case s.Mode == ModeMove:
		d := pt.Sub(s.start)
		s.Placement.X = sp.X + d.X
		s.Placement.Y = sp.Y + d.Y

	case s.Mode == ModeRotate:
		v := pt.Sub(sp.Center(s.ImageWidth, s.ImageHeight))
		if v.Norm() == 0 {
			break
		}
		// The handle sits straight above the centre, at -90 degrees.
		s.Placement.Rotation = normalizeDegrees(math.Atan2(v.Y, v.X)*180/math.Pi + 90)

	case s.Mode.IsScale():
		c := sp.Center(s.ImageWidth, s.ImageHeight)
		from := s.start.Sub(c).Norm()
		if from == 0 {
			break
		}
		scale := math.Max(sp.Scale*pt.Sub(c).Norm()/from, MinScale)
		// Scale about the centre so the opposite corner mirrors the drag.
		s.Placement.Scale = scale
		s.Placement.X = c.X - float64(s.ImageWidth)*scale/2
		s.Placement.Y = c.Y - float64(s.ImageHeight)*scale/2

	case s.Mode == ModeDrawCrop:
		s.Crop = CropFromPoints(s.start.X, s.start.Y, pt.X, pt.Y)
	}
	return s
}

// HitTest classifies a pointer-down against the rotated box of a placed image.
// Corners win over the rotation handle, which wins over the box interior.
func HitTest(p Placement, imgW, imgH int, pt r2.Point) InteractionMode {
	w, h := p.Size(imgW, imgH)
	hw, hh := w/2, h/2
	local := rotate(pt.Sub(p.Center(imgW, imgH)), -p.Rotation*math.Pi/180)

	corners := []struct {
		at   r2.Point
		mode InteractionMode
	}{
		{r2.Point{X: -hw, Y: -hh}, ModeScaleTopLeft},
		{r2.Point{X: hw, Y: -hh}, ModeScaleTopRight},
		{r2.Point{X: hw, Y: hh}, ModeScaleBottomRight},
		{r2.Point{X: -hw, Y: hh}, ModeScaleBottomLeft},
	}
	for _, c := range corners {
		if local.Sub(c.at).Norm() <= CornerTolerance {
			return c.mode
		}
	}

	if dist := local.Norm(); local.Y < -hh && dist <= hh+RotateHandleOffset+CornerTolerance {
		up := r2.Point{X: 0, Y: -1}
		angle := math.Acos(math.Max(-1, math.Min(1, local.Dot(up)/dist))) * 180 / math.Pi
		if angle <= RotateAngleTolerance {
			return ModeRotate
		}
	}

	box := r2.RectFromCenterSize(r2.Point{}, r2.Point{X: w, Y: h})
	if box.ContainsPoint(local) {
		return ModeMove
	}
	return ModeIdle
}

func rotate(p r2.Point, rad float64) r2.Point {
	cos, sin := math.Cos(rad), math.Sin(rad)
	return r2.Point{X: p.X*cos - p.Y*sin, Y: p.X*sin + p.Y*cos}
}

// normalizeDegrees maps an angle into (-180, 180].
func normalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg > 180 {
		deg -= 360
	} else if deg <= -180 {
		deg += 360
	}
	return deg
}
