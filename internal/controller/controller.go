// Package controller owns the upload and refresh workflow: it reads a file,
// hands it to the parsing service and swaps the result into the store.
package controller

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/op/go-logging"
	"golang.org/x/sync/semaphore"

	"github.com/coffersTech/logdash/internal/engine"
	"github.com/coffersTech/logdash/internal/model"
	"github.com/coffersTech/logdash/internal/pkg/failure"
)

var log = logging.MustGetLogger("controller")

// DefaultMaxBytes caps an uploaded file.
const DefaultMaxBytes = 10 * 1000 * 1000

// Events pushed to the Notifier.
const (
	EventCollectionReplaced = "collection_replaced"
	EventNewErrors          = "new_errors"
	EventRefresh            = "refresh"
	EventStatus             = "status"
)

// AllowedExtensions lists the file types accepted by Upload.
var AllowedExtensions = []string{".log", ".txt"}

// Parser turns raw log text into records.
type Parser interface {
	Parse(ctx context.Context, content []byte) ([]model.LogRecord, error)
	Fetch(ctx context.Context) ([]model.LogRecord, error)
	CanFetch() bool
}

// Notifier receives controller events. Implementations must not block.
type Notifier interface {
	Notify(event string, payload interface{})
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, interface{}) {}

// Options configures a Controller.
type Options struct {
	MaxBytes int64
	Notifier Notifier
}

// Result describes a successful ingest.
type Result struct {
	BatchID string             `json:"batch_id"`
	Source  string             `json:"source"`
	Records int                `json:"records"`
	Counts  engine.LevelCounts `json:"counts"`
	// NewErrors is only meaningful when HasDelta is set, i.e. a non-empty
	// collection was replaced.
	NewErrors int  `json:"new_errors"`
	HasDelta  bool `json:"has_delta"`
}

// Status is the user-facing state of the controller.
type Status struct {
	Busy             bool      `json:"busy"`
	Message          string    `json:"message"`
	Failure          string    `json:"failure,omitempty"`
	FileName         string    `json:"file_name,omitempty"`
	FileSize         string    `json:"file_size,omitempty"`
	BatchID          string    `json:"batch_id,omitempty"`
	Records          int       `json:"records"`
	PendingNewErrors int       `json:"pending_new_errors"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Controller serializes uploads and refreshes against one store.
type Controller struct {
	store    *engine.Store
	parser   Parser
	notifier Notifier
	maxBytes int64

	// inflight admits one upload or fetch at a time.
	inflight *semaphore.Weighted

	mu      sync.Mutex
	status  Status
	pending int
	closed  bool
}

// New returns a Controller writing into store.
func New(store *engine.Store, parser Parser, opts Options) *Controller {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	return &Controller{
		store:    store,
		parser:   parser,
		notifier: opts.Notifier,
		maxBytes: opts.MaxBytes,
		inflight: semaphore.NewWeighted(1),
		status: Status{
			Message:   "No log file loaded",
			UpdatedAt: time.Now(),
		},
	}
}

// Upload reads a log file, parses it and replaces the current collection.
// A second upload while one is in flight fails with a busy failure.
func (c *Controller) Upload(ctx context.Context, name string, r io.Reader) (Result, error) {
	const op = "controller.Upload"
	if c.isClosed() {
		return Result{}, failure.New(failure.KindClosed, op, nil)
	}
	if !c.inflight.TryAcquire(1) {
		log.Warningf("Upload of %q rejected: another upload is in flight", name)
		return Result{}, failure.New(failure.KindBusy, op, nil)
	}
	defer c.inflight.Release(1)

	if err := checkExtension(name); err != nil {
		return Result{}, c.fail(name, "", failure.New(failure.KindRead, op, err))
	}

	content, err := c.read(r)
	if err != nil {
		return Result{}, c.fail(name, "", failure.New(failure.KindRead, op, err))
	}
	size := humanize.Bytes(uint64(len(content)))

	c.setStatus(func(s *Status) {
		s.Busy = true
		s.Message = fmt.Sprintf("Uploading %s (%s)", name, size)
		s.Failure = ""
		s.FileName = name
		s.FileSize = size
	})
	log.Infof("Uploading %q (%s)", name, size)

	records, err := c.parser.Parse(ctx, content)
	if err != nil {
		return Result{}, c.fail(name, size, err)
	}
	return c.apply(op, name, size, records)
}

// Refresh pulls fresh data from the fetch URL when one is configured.
// Otherwise it re-publishes stats for the current collection.
func (c *Controller) Refresh(ctx context.Context) (Result, error) {
	const op = "controller.Refresh"
	if c.isClosed() {
		return Result{}, failure.New(failure.KindClosed, op, nil)
	}

	if !c.parser.CanFetch() {
		cur, prev := c.store.Snapshot()
		if cur == nil {
			return Result{}, nil
		}
		c.notifier.Notify(EventRefresh, engine.Summarize(cur, prev))
		return Result{
			BatchID: cur.BatchID(),
			Source:  cur.Source(),
			Records: cur.Len(),
			Counts:  cur.Counts(),
		}, nil
	}

	if !c.inflight.TryAcquire(1) {
		return Result{}, failure.New(failure.KindBusy, op, nil)
	}
	defer c.inflight.Release(1)

	c.setStatus(func(s *Status) {
		s.Busy = true
		s.Message = "Refreshing logs"
		s.Failure = ""
	})

	records, err := c.parser.Fetch(ctx)
	if err != nil {
		return Result{}, c.fail("", "", err)
	}
	return c.apply(op, "fetch", "", records)
}

// apply swaps in the new collection and works out the new-error delta.
func (c *Controller) apply(op, source, size string, records []model.LogRecord) (Result, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		log.Infof("Discarding %d records from %q: controller closed", len(records), source)
		return Result{}, failure.New(failure.KindClosed, op, nil)
	}

	coll := engine.NewCollection(source, records)
	prev := c.store.Replace(coll)

	res := Result{
		BatchID: coll.BatchID(),
		Source:  source,
		Records: coll.Len(),
		Counts:  coll.Counts(),
	}
	if prev.Len() > 0 {
		res.HasDelta = true
		if d := coll.ErrorCount() - prev.ErrorCount(); d > 0 {
			res.NewErrors = d
			c.pending = d
		}
	}

	c.status.Busy = false
	c.status.Failure = ""
	c.status.Message = fmt.Sprintf("Loaded %d log entries from %s", coll.Len(), source)
	if size != "" {
		c.status.FileSize = size
	}
	c.status.BatchID = coll.BatchID()
	c.status.Records = coll.Len()
	c.status.PendingNewErrors = c.pending
	c.status.UpdatedAt = time.Now()
	st := c.status
	c.mu.Unlock()

	c.notifier.Notify(EventCollectionReplaced, res)
	if res.NewErrors > 0 {
		log.Infof("%d new errors since the previous collection", res.NewErrors)
		c.notifier.Notify(EventNewErrors, map[string]int{"count": res.NewErrors})
	}
	c.notifier.Notify(EventStatus, st)
	return res, nil
}

// fail records err as the status message and returns it unchanged.
func (c *Controller) fail(name, size string, err error) error {
	log.Errorf("Ingest of %q failed: %v", name, err)
	st := c.setStatus(func(s *Status) {
		s.Busy = false
		s.Message = failure.MessageOf(err)
		s.Failure = failure.KindOf(err).String()
		if name != "" {
			s.FileName = name
			s.FileSize = size
		}
	})
	c.notifier.Notify(EventStatus, st)
	return err
}

func (c *Controller) setStatus(fn func(*Status)) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.status)
	c.status.PendingNewErrors = c.pending
	c.status.UpdatedAt = time.Now()
	return c.status
}

// read loads the whole upload, failing when it exceeds the size cap.
func (c *Controller) read(r io.Reader) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("no file selected")
	}
	content, err := io.ReadAll(io.LimitReader(r, c.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(content)) > c.maxBytes {
		return nil, fmt.Errorf("file is larger than %s", humanize.Bytes(uint64(c.maxBytes)))
	}
	return content, nil
}

func checkExtension(name string) error {
	if name == "" {
		return fmt.Errorf("no file selected")
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return nil
		}
	}
	return fmt.Errorf("unsupported file type %q, expected one of %s", ext, strings.Join(AllowedExtensions, ", "))
}

// Status returns a copy of the current status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// NewErrorCount is the pending new-error badge.
func (c *Controller) NewErrorCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// AcknowledgeErrors clears the new-error badge.
func (c *Controller) AcknowledgeErrors() {
	c.mu.Lock()
	c.pending = 0
	c.status.PendingNewErrors = 0
	c.mu.Unlock()
}

// Close stops the controller. In-flight results that arrive later are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		log.Infof("Controller closed")
	}
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
