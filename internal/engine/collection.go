package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/coffersTech/logdash/internal/model"
)

// Collection is one ingest batch. It is immutable once built: a new upload
// produces a new Collection instead of touching this one.
type Collection struct {
	batchID    string
	source     string
	ingestedAt time.Time
	records    []model.LogRecord
	counts     LevelCounts
}

// NewCollection copies records into a new batch and assigns positional IDs (1..n).
func NewCollection(source string, records []model.LogRecord) *Collection {
	rows := make([]model.LogRecord, len(records))
	copy(rows, records)
	for i := range rows {
		rows[i].ID = i + 1
	}

	return &Collection{
		batchID:    uuid.NewString(),
		source:     source,
		ingestedAt: time.Now(),
		records:    rows,
		counts:     CountsByLevel(rows),
	}
}

// BatchID identifies the ingest batch.
func (c *Collection) BatchID() string {
	if c == nil {
		return ""
	}
	return c.batchID
}

// Source is the file name or URL the batch came from.
func (c *Collection) Source() string {
	if c == nil {
		return ""
	}
	return c.source
}

// IngestedAt returns when the batch replaced its predecessor.
func (c *Collection) IngestedAt() time.Time {
	if c == nil {
		return time.Time{}
	}
	return c.ingestedAt
}

// Len returns the number of records. A nil Collection is empty.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.records)
}

// Records returns a copy of the records in ingest order.
func (c *Collection) Records() []model.LogRecord {
	if c == nil {
		return []model.LogRecord{}
	}
	out := make([]model.LogRecord, len(c.records))
	copy(out, c.records)
	return out
}

// rows exposes the backing slice to read-only code in this package.
func (c *Collection) rows() []model.LogRecord {
	if c == nil {
		return nil
	}
	return c.records
}

// Counts returns the per-level counts over the whole batch.
func (c *Collection) Counts() LevelCounts {
	if c == nil {
		return CountsByLevel(nil)
	}
	return c.counts.clone()
}

// ErrorCount is shorthand for Counts()[model.LevelError].
func (c *Collection) ErrorCount() int {
	if c == nil {
		return 0
	}
	return c.counts[model.LevelError]
}
