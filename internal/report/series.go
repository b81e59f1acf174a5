// Package report renders a run's frame records for people: a frame-by-frame
// viewer, interactive charts and a static speed plot.
package report

import (
	"sort"

	"github.com/banshee-data/rinkspeed/internal/record"
)

// Sample is one player's values in one frame.
type Sample struct {
	FrameIndex int
	Time       float64
	Entity     record.Entity
}

// Series is every sample of one player, in frame order.
type Series struct {
	PlayerID string
	Type     string
	Samples  []Sample
}

// PlayerSeries groups frame records by player, sorted by player id.
func PlayerSeries(frames []record.FrameRecord) []Series {
	byID := make(map[string]*Series)
	for _, f := range frames {
		for _, e := range f.Players {
			s, ok := byID[e.PlayerID]
			if !ok {
				s = &Series{PlayerID: e.PlayerID, Type: e.Type}
				byID[e.PlayerID] = s
			}
			s.Samples = append(s.Samples, Sample{FrameIndex: f.FrameIndex, Time: f.Timestamp, Entity: e})
		}
	}

	out := make([]Series, 0, len(byID))
	for _, s := range byID {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out
}
