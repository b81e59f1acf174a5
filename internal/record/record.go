// Package record defines the persisted per-frame output of a run and its
// on-disk encoding. The JSON produced here is the only interface the
// reporting layer consumes.
package record

import (
	"encoding/json"
	"math"

	"github.com/banshee-data/rinkspeed/internal/kinematics"
)

// Entity is one tracked player in one frame with its derived metrics.
// Speeds are in the run's display unit, acceleration in m/s² and headings in
// degrees. All derived fields are rounded to two decimals.
type Entity struct {
	PlayerID     string
	Type         string
	BBox         [4]float64
	RinkPosition *kinematics.Point

	Speed        float64
	Acceleration float64
	Orientation  float64

	SpeedMovingAvg        float64
	AccelerationMovingAvg float64
	OrientationMovingAvg  float64
}

// entityJSON is the wire form of Entity.
type entityJSON struct {
	PlayerID              string            `json:"player_id"`
	Type                  string            `json:"type"`
	BBox                  [4]float64        `json:"bbox"`
	RinkPosition          *kinematics.Point `json:"rink_position"`
	Speed                 float64           `json:"speed"`
	Acceleration          float64           `json:"acceleration"`
	Orientation           float64           `json:"orientation"`
	SpeedMovingAvg        float64           `json:"speed_moving_avg"`
	AccelerationMovingAvg float64           `json:"acceleration_moving_avg"`
	OrientationMovingAvg  float64           `json:"orientation_moving_avg"`
}

// finite maps NaN and ±Inf to 0 so every value has a JSON representation.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// MarshalJSON writes every numeric field as a plain finite number. The
// position is written as null when the projection failed.
func (e Entity) MarshalJSON() ([]byte, error) {
	w := entityJSON{
		PlayerID:              e.PlayerID,
		Type:                  e.Type,
		Speed:                 finite(e.Speed),
		Acceleration:          finite(e.Acceleration),
		Orientation:           finite(e.Orientation),
		SpeedMovingAvg:        finite(e.SpeedMovingAvg),
		AccelerationMovingAvg: finite(e.AccelerationMovingAvg),
		OrientationMovingAvg:  finite(e.OrientationMovingAvg),
	}
	for i, v := range e.BBox {
		w.BBox[i] = finite(v)
	}
	if e.RinkPosition != nil {
		w.RinkPosition = &kinematics.Point{X: finite(e.RinkPosition.X), Y: finite(e.RinkPosition.Y)}
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads the form written by MarshalJSON.
func (e *Entity) UnmarshalJSON(b []byte) error {
	var w entityJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*e = Entity{
		PlayerID:              w.PlayerID,
		Type:                  w.Type,
		BBox:                  w.BBox,
		RinkPosition:          w.RinkPosition,
		Speed:                 w.Speed,
		Acceleration:          w.Acceleration,
		Orientation:           w.Orientation,
		SpeedMovingAvg:        w.SpeedMovingAvg,
		AccelerationMovingAvg: w.AccelerationMovingAvg,
		OrientationMovingAvg:  w.OrientationMovingAvg,
	}
	return nil
}

// KinematicsInput returns the calculator view of the frame's entities.
func (f *FrameRecord) KinematicsInput() []kinematics.Observation {
	out := make([]kinematics.Observation, len(f.Players))
	for i, p := range f.Players {
		out[i] = kinematics.Observation{EntityID: p.PlayerID, Position: p.RinkPosition}
	}
	return out
}

// ApplyEstimates copies derived metrics onto the frame's entities. The
// estimates must be in entity order.
func (f *FrameRecord) ApplyEstimates(est []kinematics.Estimate) {
	for i := range f.Players {
		if i >= len(est) {
			return
		}
		e := est[i]
		p := &f.Players[i]
		p.Speed = e.Metrics.Speed
		p.Acceleration = e.Metrics.Acceleration
		p.Orientation = e.Metrics.Orientation
		p.SpeedMovingAvg = e.MovingAvg.Speed
		p.AccelerationMovingAvg = e.MovingAvg.Acceleration
		p.OrientationMovingAvg = e.MovingAvg.Orientation
	}
}

// FrameRecord is the persisted record of one processed frame.
type FrameRecord struct {
	FrameID    int      `json:"frame_id"`
	FrameIndex int      `json:"frame_idx"`
	Timestamp  float64  `json:"timestamp"` // seconds since the first frame of the run
	Players    []Entity `json:"players"`

	HomographySuccess      bool            `json:"homography_success"`
	HomographyInterpolated bool            `json:"homography_interpolated,omitempty"`
	HomographySource       string          `json:"homography_source,omitempty"`
	InterpolationDetails   json.RawMessage `json:"interpolation_details,omitempty"`
	HomographyMatrix       json.RawMessage `json:"homography_matrix,omitempty"`
	SegmentationFeatures   json.RawMessage `json:"segmentation_features,omitempty"`

	OriginalFramePath string `json:"original_frame_path,omitempty"`
	DetectionsPath    string `json:"detections_path,omitempty"`
	TrackingPath      string `json:"tracking_path,omitempty"`
}

// keptFeatures are the segmentation features carried into the record.
var keptFeatures = []string{"blue_lines", "center_line", "goal_lines"}

// FilterSegmentationFeatures reduces a tracker's segmentation output to the
// line features used by the viewer. The input is an object with a "features"
// member; anything else yields nil.
func FilterSegmentationFeatures(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var in struct {
		Features map[string]json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil
	}
	out := struct {
		Features map[string]json.RawMessage `json:"features"`
	}{Features: make(map[string]json.RawMessage)}
	for _, k := range keptFeatures {
		if v, ok := in.Features[k]; ok {
			out.Features[k] = v
		}
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil
	}
	return b
}
