package core

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// TrackingID identifies one activated instance for its whole life.
// The zero value means "no instance".
type TrackingID ulid.ULID

// NewTrackingID returns a fresh, strictly increasing tracking id.
func NewTrackingID() TrackingID {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return TrackingID(ulid.MustNew(ulid.Timestamp(time.Now()), entropy))
}

// ParseTrackingID parses the string form produced by String.
func ParseTrackingID(s string) (TrackingID, error) {
	id, err := ulid.Parse(s)
	if err != nil {
		return TrackingID{}, fmt.Errorf("invalid tracking id %q: %w", s, err)
	}
	return TrackingID(id), nil
}

// IsZero reports whether the id was never assigned.
func (id TrackingID) IsZero() bool {
	return id == TrackingID{}
}

func (id TrackingID) String() string {
	return ulid.ULID(id).String()
}

// ObjectID is the world's identifier for a spawned object.
type ObjectID string
