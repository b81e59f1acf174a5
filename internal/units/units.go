// Package units provides shared constants and conversions for speed units.
//
// Kinematics are computed and stored in metres per second; conversion to a
// display unit happens only when a value leaves the core.
package units

import "math"

// Unit constants
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{MPS, MPH, KMPH, KPH}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "mps, mph, kmph, kph"
}

const (
	mpsToKMPH = 3.6
	mpsToMPH  = 2.2369362920544
)

// ConvertSpeed converts a speed from meters per second to the target units.
// Unknown units fall back to m/s.
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case MPS:
		return speedMPS
	case MPH:
		return speedMPS * mpsToMPH
	case KMPH, KPH:
		return speedMPS * mpsToKMPH
	default:
		return speedMPS
	}
}

// PlaneToMeters scales a distance measured in plane units to metres.
// scale is metres per plane unit.
func PlaneToMeters(distance, scale float64) float64 {
	return distance * scale
}

// HeadingDegrees returns the direction of the displacement (dx, dy) in
// degrees, normalised into [0, 360). A zero displacement yields 0.
func HeadingDegrees(dx, dy float64) float64 {
	if dx == 0 && dy == 0 {
		return 0
	}
	deg := math.Atan2(dy, dx) * 180 / math.Pi
	deg = math.Mod(deg+360, 360)
	if deg >= 360 {
		deg = 0
	}
	return deg
}
