package document

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// IDGenerator issues document ids of the form doc_<utc timestamp>_<seq>_<rand>.
// The sequence is process-wide and monotonic, so two ids from one generator never collide
// even within the same microsecond. The random suffix separates concurrent processes.
type IDGenerator struct {
	seq atomic.Uint64
	now func() time.Time
}

// NewIDGenerator creates a generator using the wall clock.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{now: time.Now}
}

// NewIDGeneratorWithClock creates a generator with a fixed clock (tests).
func NewIDGeneratorWithClock(now func() time.Time) *IDGenerator {
	return &IDGenerator{now: now}
}

// Next returns a fresh id and the timestamp it embeds.
func (g *IDGenerator) Next() (string, time.Time) {
	ts := g.now().UTC()
	n := g.seq.Add(1)
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("doc_%s_%06d_%d_%s", ts.Format("20060102_150405"), ts.Nanosecond()/1000, n, suffix), ts
}
