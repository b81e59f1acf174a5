package tracking

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/rinkspeed/internal/monitoring"
	"github.com/banshee-data/rinkspeed/internal/video"
)

const maxReplayLine = 16 * 1024 * 1024

// ReplayTracker serves tracker output recorded earlier as JSON lines, one
// FrameResult per line. Frames without a recorded line yield no players.
type ReplayTracker struct {
	frames   map[int]*FrameResult
	maxIndex int
}

// LoadReplay reads a JSON-lines replay file.
func LoadReplay(path string) (*ReplayTracker, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay file: %w", err)
	}
	defer f.Close()
	return ReadReplay(f)
}

// ReadReplay parses JSON-lines tracker output. Blank lines are skipped; a
// later line for the same frame index replaces an earlier one.
func ReadReplay(r io.Reader) (*ReplayTracker, error) {
	rt := &ReplayTracker{frames: make(map[int]*FrameResult), maxIndex: -1}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxReplayLine)
	line := 0
	for sc.Scan() {
		line++
		b := sc.Bytes()
		if len(b) == 0 {
			continue
		}
		var fr FrameResult
		if err := json.Unmarshal(b, &fr); err != nil {
			return nil, fmt.Errorf("replay line %d: %w", line, err)
		}
		if _, dup := rt.frames[fr.FrameIndex]; dup {
			monitoring.Logf("replay line %d: frame %d recorded twice, keeping the later line", line, fr.FrameIndex)
		}
		rt.frames[fr.FrameIndex] = &fr
		if fr.FrameIndex > rt.maxIndex {
			rt.maxIndex = fr.FrameIndex
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read replay: %w", err)
	}
	return rt, nil
}

// ProcessFrame returns a copy of the recorded result for the frame's index.
func (rt *ReplayTracker) ProcessFrame(ctx context.Context, frame video.Frame) (*FrameResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx := frame.Index()
	rec, ok := rt.frames[idx]
	if !ok {
		return &FrameResult{FrameIndex: idx, Players: []Observation{}}, nil
	}
	out := *rec
	out.FrameIndex = idx
	out.Players = append([]Observation(nil), rec.Players...)
	return &out, nil
}

// FrameCount returns one past the highest recorded frame index.
func (rt *ReplayTracker) FrameCount() int {
	return rt.maxIndex + 1
}
