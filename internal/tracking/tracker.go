// Package tracking defines the contract with the external player tracker:
// detection, orientation inference and the image-to-rink projection happen
// there, and this package only describes what comes back.
package tracking

import (
	"context"
	"encoding/json"

	"github.com/banshee-data/rinkspeed/internal/kinematics"
	"github.com/banshee-data/rinkspeed/internal/video"
)

// BBox is an image-space box: x1, y1, x2, y2.
type BBox [4]float64

// Observation is one tracked player as reported by the tracker.
type Observation struct {
	PlayerID     string            `json:"player_id"`
	Type         string            `json:"type"`
	BBox         BBox              `json:"bbox"`
	RinkPosition *kinematics.Point `json:"rink_position,omitempty"`
}

// FrameResult is the tracker's output for one frame. The homography fields
// are opaque to this module and are copied through to the frame record.
type FrameResult struct {
	FrameIndex int           `json:"frame_idx"`
	Players    []Observation `json:"players"`

	HomographySuccess      bool            `json:"homography_success"`
	HomographyInterpolated bool            `json:"homography_interpolated,omitempty"`
	HomographySource       string          `json:"homography_source,omitempty"`
	HomographyMatrix       json.RawMessage `json:"homography_matrix,omitempty"`
	InterpolationDetails   json.RawMessage `json:"interpolation_details,omitempty"`
	SegmentationFeatures   json.RawMessage `json:"segmentation_features,omitempty"`
}

// Tracker turns a decoded frame into player observations.
type Tracker interface {
	ProcessFrame(ctx context.Context, frame video.Frame) (*FrameResult, error)
}
