package client

import (
	"math"
	"sync"
	"time"

	"github.com/feldrin/vtt-backend/pkg/types"
)

// Markers disappear this long after receipt, regardless of further
// ping volume.
const DefaultPingTTL = 1750 * time.Millisecond

// Size animation: oscillates between min and max as the frame count
// advances, assuming ~60 ticks per second.
const (
	markerMinSize = 0.0
	markerMaxSize = 100.0
	markerSpeed   = 0.15
)

type Marker struct {
	ID    int
	Ping  types.PingLocation
	Frame int
	Size  float64
}

// PingTracker holds the transient ping markers currently on screen.
type PingTracker struct {
	mu      sync.Mutex
	ttl     time.Duration
	nextID  int
	markers map[int]*Marker
}

func NewPingTracker(ttl time.Duration) *PingTracker {
	if ttl <= 0 {
		ttl = DefaultPingTTL
	}
	return &PingTracker{ttl: ttl, markers: make(map[int]*Marker)}
}

// Add inserts a marker and schedules its removal after the TTL.
func (t *PingTracker) Add(p types.PingLocation) {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.markers[id] = &Marker{ID: id, Ping: p}
	t.mu.Unlock()

	time.AfterFunc(t.ttl, func() { t.remove(id) })
}

func (t *PingTracker) remove(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.markers, id)
}

// Advance runs one animation tick for every live marker.
func (t *PingTracker) Advance() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, m := range t.markers {
		m.Frame++
		m.Size = markerSize(m.Frame)
	}
}

// Active returns a copy of the live markers, oldest first.
func (t *PingTracker) Active() []Marker {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Marker, 0, len(t.markers))
	for id := 0; id < t.nextID; id++ {
		if m, ok := t.markers[id]; ok {
			out = append(out, *m)
		}
	}
	return out
}

func markerSize(frame int) float64 {
	return markerMinSize + (markerMaxSize-markerMinSize)*(math.Sin(float64(frame)*markerSpeed)+1)/2
}
