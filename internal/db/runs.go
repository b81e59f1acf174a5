package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/rinkspeed/internal/kinematics"
	"github.com/banshee-data/rinkspeed/internal/record"
)

// Run is the stored summary of one processing run.
type Run struct {
	ID                string            `json:"run_id"`
	CreatedAt         time.Time         `json:"created_at"`
	VideoPath         string            `json:"video_path"`
	DetectionModel    string            `json:"detection_model"`
	OrientationModel  string            `json:"orientation_model"`
	SegmentationModel string            `json:"segmentation_model,omitempty"`
	StartFrame        int               `json:"start_frame"`
	EndFrame          int               `json:"end_frame"`
	FrameStep         int               `json:"frame_step"`
	FramesProcessed   int               `json:"frames_processed"`
	ProcessingTime    float64           `json:"processing_time"`
	ProcessingFPS     float64           `json:"processing_fps"`
	VideoFPS          float64           `json:"video_fps"`
	Params            record.Parameters `json:"params"`
	OutputDir         string            `json:"output_dir"`
	DataPath          string            `json:"data_path"`
}

// PlayerStats aggregates one player's metrics over a run.
type PlayerStats struct {
	PlayerID          string  `json:"player_id"`
	Type              string  `json:"type"`
	Frames            int     `json:"frames"`
	PositionedFrames  int     `json:"positioned_frames"`
	MaxSpeed          float64 `json:"max_speed"`
	MaxSpeedMovingAvg float64 `json:"max_speed_moving_avg"`
	AvgSpeed          float64 `json:"avg_speed"`
}

const runColumns = `run_id, created_unix, video_path, detection_model, orientation_model,
	segmentation_model, start_frame, end_frame, frame_step, frames_processed,
	processing_time, processing_fps, video_fps, fps, spatial_scale,
	history_capacity, moving_avg_window, speed_units, output_dir, data_path`

// SaveRun stores a run with all its frames in one transaction.
func (db *DB) SaveRun(ctx context.Context, data *record.TrackingData, outputDir, dataPath string, createdAt time.Time) error {
	if data.RunID == "" {
		return fmt.Errorf("run has no id")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	p := data.Params
	_, err = tx.ExecContext(ctx, `INSERT INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		data.RunID, createdAt.Unix(), data.VideoPath, data.DetectionModel, data.OrientationModel,
		data.SegmentationModel, data.StartFrame, data.EndFrame, data.FrameStep, data.FramesProcessed,
		data.ProcessingTime, data.FPS, data.VideoFPS, p.FPS, p.SpatialScale,
		p.HistoryCapacity, p.MovingAverageWindow, p.SpeedUnits, outputDir, dataPath,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	frameStmt, err := tx.PrepareContext(ctx, `INSERT INTO frames (
		run_id, frame_idx, frame_id, timestamp, homography_success, homography_interpolated,
		homography_source, interpolation_details, homography_matrix, segmentation_features,
		original_frame_path, detections_path, tracking_path
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer frameStmt.Close()

	entityStmt, err := tx.PrepareContext(ctx, `INSERT INTO entities (
		run_id, frame_idx, seq, player_id, type, bbox_x1, bbox_y1, bbox_x2, bbox_y2,
		rink_x, rink_y, speed, acceleration, orientation,
		speed_moving_avg, acceleration_moving_avg, orientation_moving_avg
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer entityStmt.Close()

	for _, f := range data.Frames {
		_, err := frameStmt.ExecContext(ctx,
			data.RunID, f.FrameIndex, f.FrameID, f.Timestamp, f.HomographySuccess, f.HomographyInterpolated,
			f.HomographySource, rawText(f.InterpolationDetails), rawText(f.HomographyMatrix), rawText(f.SegmentationFeatures),
			f.OriginalFramePath, f.DetectionsPath, f.TrackingPath,
		)
		if err != nil {
			return fmt.Errorf("insert frame %d: %w", f.FrameIndex, err)
		}
		for seq, e := range f.Players {
			var rx, ry sql.NullFloat64
			if e.RinkPosition != nil {
				rx = sql.NullFloat64{Float64: e.RinkPosition.X, Valid: true}
				ry = sql.NullFloat64{Float64: e.RinkPosition.Y, Valid: true}
			}
			_, err := entityStmt.ExecContext(ctx,
				data.RunID, f.FrameIndex, seq, e.PlayerID, e.Type,
				e.BBox[0], e.BBox[1], e.BBox[2], e.BBox[3], rx, ry,
				e.Speed, e.Acceleration, e.Orientation,
				e.SpeedMovingAvg, e.AccelerationMovingAvg, e.OrientationMovingAvg,
			)
			if err != nil {
				return fmt.Errorf("insert entity %s in frame %d: %w", e.PlayerID, f.FrameIndex, err)
			}
		}
	}
	return tx.Commit()
}

// ListRuns returns all runs, newest first.
func (db *DB) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created_unix DESC, run_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetRun returns one run or ErrNotFound.
func (db *DB) GetRun(ctx context.Context, id string) (*Run, error) {
	row := db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return r, err
}

// DeleteRun removes a run and its frames.
func (db *DB) DeleteRun(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetFrames returns a run's frame records in frame order with entities in
// their recorded order.
func (db *DB) GetFrames(ctx context.Context, runID string) ([]record.FrameRecord, error) {
	if _, err := db.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT frame_idx, frame_id, timestamp, homography_success,
		homography_interpolated, homography_source, interpolation_details, homography_matrix,
		segmentation_features, original_frame_path, detections_path, tracking_path
		FROM frames WHERE run_id = ? ORDER BY frame_idx`, runID)
	if err != nil {
		return nil, err
	}

	frames := []record.FrameRecord{}
	pos := make(map[int]int)
	for rows.Next() {
		var f record.FrameRecord
		var details, matrix, seg sql.NullString
		if err := rows.Scan(&f.FrameIndex, &f.FrameID, &f.Timestamp, &f.HomographySuccess,
			&f.HomographyInterpolated, &f.HomographySource, &details, &matrix, &seg,
			&f.OriginalFramePath, &f.DetectionsPath, &f.TrackingPath); err != nil {
			rows.Close()
			return nil, err
		}
		f.InterpolationDetails = textRaw(details)
		f.HomographyMatrix = textRaw(matrix)
		f.SegmentationFeatures = textRaw(seg)
		f.Players = []record.Entity{}
		pos[f.FrameIndex] = len(frames)
		frames = append(frames, f)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	erows, err := db.QueryContext(ctx, `SELECT frame_idx, player_id, type,
		bbox_x1, bbox_y1, bbox_x2, bbox_y2, rink_x, rink_y,
		speed, acceleration, orientation, speed_moving_avg, acceleration_moving_avg, orientation_moving_avg
		FROM entities WHERE run_id = ? ORDER BY frame_idx, seq`, runID)
	if err != nil {
		return nil, err
	}
	defer erows.Close()

	for erows.Next() {
		var idx int
		var e record.Entity
		var rx, ry sql.NullFloat64
		if err := erows.Scan(&idx, &e.PlayerID, &e.Type,
			&e.BBox[0], &e.BBox[1], &e.BBox[2], &e.BBox[3], &rx, &ry,
			&e.Speed, &e.Acceleration, &e.Orientation,
			&e.SpeedMovingAvg, &e.AccelerationMovingAvg, &e.OrientationMovingAvg); err != nil {
			return nil, err
		}
		if rx.Valid && ry.Valid {
			e.RinkPosition = &kinematics.Point{X: rx.Float64, Y: ry.Float64}
		}
		i, ok := pos[idx]
		if !ok {
			continue
		}
		frames[i].Players = append(frames[i].Players, e)
	}
	return frames, erows.Err()
}

// LoadTrackingData reassembles the complete tracking data of a stored run.
func (db *DB) LoadTrackingData(ctx context.Context, runID string) (*record.TrackingData, error) {
	r, err := db.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	frames, err := db.GetFrames(ctx, runID)
	if err != nil {
		return nil, err
	}
	return &record.TrackingData{
		RunID:             r.ID,
		Frames:            frames,
		ProcessingTime:    r.ProcessingTime,
		FramesProcessed:   r.FramesProcessed,
		FPS:               r.ProcessingFPS,
		VideoFPS:          r.VideoFPS,
		VideoPath:         r.VideoPath,
		DetectionModel:    r.DetectionModel,
		OrientationModel:  r.OrientationModel,
		SegmentationModel: r.SegmentationModel,
		StartFrame:        r.StartFrame,
		EndFrame:          r.EndFrame,
		FrameStep:         r.FrameStep,
		Params:            r.Params,
	}, nil
}

// PlayerStats summarises each player's speed over a run, fastest first.
func (db *DB) PlayerStats(ctx context.Context, runID string) ([]PlayerStats, error) {
	if _, err := db.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT player_id, MAX(type), COUNT(*),
		COUNT(rink_x), MAX(speed), MAX(speed_moving_avg), COALESCE(AVG(speed), 0)
		FROM entities WHERE run_id = ?
		GROUP BY player_id
		ORDER BY MAX(speed) DESC, player_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []PlayerStats{}
	for rows.Next() {
		var s PlayerStats
		if err := rows.Scan(&s.PlayerID, &s.Type, &s.Frames, &s.PositionedFrames,
			&s.MaxSpeed, &s.MaxSpeedMovingAvg, &s.AvgSpeed); err != nil {
			return nil, err
		}
		s.AvgSpeed = kinematics.Round2(s.AvgSpeed)
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var r Run
	var created int64
	err := s.Scan(&r.ID, &created, &r.VideoPath, &r.DetectionModel, &r.OrientationModel,
		&r.SegmentationModel, &r.StartFrame, &r.EndFrame, &r.FrameStep, &r.FramesProcessed,
		&r.ProcessingTime, &r.ProcessingFPS, &r.VideoFPS, &r.Params.FPS, &r.Params.SpatialScale,
		&r.Params.HistoryCapacity, &r.Params.MovingAverageWindow, &r.Params.SpeedUnits, &r.OutputDir, &r.DataPath)
	if err != nil {
		return nil, err
	}
	r.CreatedAt = time.Unix(created, 0).UTC()
	return &r, nil
}

func rawText(r json.RawMessage) sql.NullString {
	if len(r) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(r), Valid: true}
}

func textRaw(s sql.NullString) json.RawMessage {
	if !s.Valid {
		return nil
	}
	return json.RawMessage(s.String)
}
