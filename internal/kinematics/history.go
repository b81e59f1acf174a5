package kinematics

// Point is a position on the playing surface in plane units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// HistoryEntry is one retained sample for an entity.
type HistoryEntry struct {
	Position   Point
	SpeedMPS   float64 // speed at this sample, metres per second
	FrameIndex int
}

// HistoryStore keeps the most recent HistoryCapacity samples per entity.
// Buffers are created on first write and live for the store's lifetime.
type HistoryStore struct {
	capacity int
	entries  map[string]*Ring[HistoryEntry]
}

// NewHistoryStore creates an empty store with the given per-entity capacity.
func NewHistoryStore(capacity int) *HistoryStore {
	if capacity < 1 {
		capacity = 1
	}
	return &HistoryStore{
		capacity: capacity,
		entries:  make(map[string]*Ring[HistoryEntry]),
	}
}

// Record appends a sample for entityID, evicting the oldest once the
// capacity is exceeded.
func (s *HistoryStore) Record(entityID string, frameIndex int, position Point, speedMPS float64) {
	ring, ok := s.entries[entityID]
	if !ok {
		ring = NewRing[HistoryEntry](s.capacity)
		s.entries[entityID] = ring
	}
	ring.Push(HistoryEntry{Position: position, SpeedMPS: speedMPS, FrameIndex: frameIndex})
}

// HistoryOf returns a copy of the entity's samples, oldest first. Unknown
// entities have an empty history.
func (s *HistoryStore) HistoryOf(entityID string) []HistoryEntry {
	ring, ok := s.entries[entityID]
	if !ok {
		return nil
	}
	return ring.Slice()
}

// last returns the newest sample and the number of samples held.
func (s *HistoryStore) last(entityID string) (HistoryEntry, int) {
	ring, ok := s.entries[entityID]
	if !ok {
		return HistoryEntry{}, 0
	}
	e, _ := ring.Last()
	return e, ring.Len()
}
