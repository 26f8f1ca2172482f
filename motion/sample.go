package motion

import (
	"fmt"
	"strconv"
	"strings"

	"i4.energy/across/tellogw/tello"
)

// Sample is one 3-axis acceleration reading from the sensor board, in the
// board's raw units.
type Sample struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Axis names the acceleration axis that drives a movement.
type Axis int

const (
	AxisNone Axis = iota
	// AxisX is roll: left and right.
	AxisX
	// AxisY is pitch: forward and back.
	AxisY
	// AxisZ is yaw in the board's terms: up and down.
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return "none"
	}
}

// Dominant returns the axis whose magnitude strictly exceeds both others.
// A tie between the two largest magnitudes yields AxisNone.
func Dominant(s Sample) Axis {
	x, y, z := abs(s.X), abs(s.Y), abs(s.Z)
	switch {
	case y > x && y > z:
		return AxisY
	case x > y && x > z:
		return AxisX
	case z > x && z > y:
		return AxisZ
	default:
		return AxisNone
	}
}

// Thresholds decide when an axis reading becomes a movement. Pitch and roll
// use the symmetric Tilt bound; yaw rests near 1g, so it uses its own band.
type Thresholds struct {
	Tilt     int `yaml:"tilt"`
	YawLow   int `yaml:"yaw_low"`
	YawHigh  int `yaml:"yaw_high"`
	Distance int `yaml:"distance"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Tilt:     15,
		YawLow:   800,
		YawHigh:  1200,
		Distance: tello.MinDistance,
	}
}

// Decide maps the reading of axis to a movement, or reports false when the
// reading is within its band.
func Decide(axis Axis, s Sample, th Thresholds) (tello.Command, bool) {
	var d tello.Direction

	switch axis {
	case AxisY:
		switch {
		case s.Y > th.Tilt:
			d = tello.Forward
		case s.Y < -th.Tilt:
			d = tello.Back
		}
	case AxisX:
		switch {
		case s.X > th.Tilt:
			d = tello.Right
		case s.X < -th.Tilt:
			d = tello.Left
		}
	case AxisZ:
		switch {
		case s.Z < th.YawLow:
			d = tello.Up
		case s.Z > th.YawHigh:
			d = tello.Down
		}
	}

	if d == "" {
		return tello.Command{}, false
	}
	return tello.Move(d, th.Distance), true
}

// ParseSample reads "x,y,z". Whitespace and semicolons also separate
// fields. Each reading must fit in 16 bits, the width of the sensor's
// output registers.
func ParseSample(line string) (Sample, error) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t'
	})
	if len(fields) != 3 {
		return Sample{}, fmt.Errorf("%w: %q", ErrMalformedSample, line)
	}

	var v [3]int
	for i, f := range fields {
		n, err := strconv.ParseInt(f, 10, 16)
		if err != nil {
			return Sample{}, fmt.Errorf("%w: %q", ErrMalformedSample, line)
		}
		v[i] = int(n)
	}
	return Sample{X: v[0], Y: v[1], Z: v[2]}, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
