package annotator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultStagingSize is the default staging capacity.
const DefaultStagingSize = 30

var (
	// ErrCommitInFlight is returned by BeginCommit while another batch has
	// neither completed nor been aborted.
	ErrCommitInFlight = errors.New("annotator: commit already in flight")
	// ErrUnstageable is returned when staging an annotation kind that the
	// commit format cannot carry.
	ErrUnstageable = errors.New("annotator: annotation cannot be staged")
	// ErrStaleCommit is returned when completing or aborting a batch that is
	// not the one in flight.
	ErrStaleCommit = errors.New("annotator: stale commit batch")
)

// StagingType is the kind of a staged annotation.
type StagingType uint8

const (
	StagingLabel StagingType = iota
	StagingBBox
)

func (t StagingType) String() string {
	if t == StagingBBox {
		return "bbox"
	}
	return "label"
}

// StagingItem is one pending annotation.
type StagingItem struct {
	ID         string
	ImageKey   string
	Image      ImageRef
	Type       StagingType
	Annotation Annotation
	Timestamp  time.Time
}

// CommitRecord is the per-image payload handed to a Committer. Empty
// annotation lists are omitted.
type CommitRecord struct {
	DataID           string            `json:"dataId"`
	DataPath         string            `json:"dataPath"`
	LabelAnnotations []LabelAnnotation `json:"labelAnnotations,omitempty"`
	BBoxAnnotations  []BoundingBox     `json:"bboxAnnotations,omitempty"`
}

// StagingStats summarizes the buffer.
type StagingStats struct {
	Total     int
	ByType    map[StagingType]int
	ByImage   map[string]int
	Remaining int
}

// Committer persists commit records. It is implemented outside this package.
type Committer interface {
	Commit(ctx context.Context, records []CommitRecord) error
}

// CommitFunc adapts a function to Committer.
type CommitFunc func(ctx context.Context, records []CommitRecord) error

// Commit calls f.
func (f CommitFunc) Commit(ctx context.Context, records []CommitRecord) error {
	return f(ctx, records)
}

// CommitBatch is a snapshot taken by BeginCommit.
type CommitBatch struct {
	Records []CommitRecord
	itemIDs []string
}

// StagingBuffer holds annotations awaiting commit. It keeps at most one item
// per image and at most MaxSize items. It is safe for concurrent use so that
// a commit may run off the event loop.
//
// While a batch is in flight new items may still be staged. Completing the
// batch removes only the items it captured that are still present, so an
// item that replaced a captured one survives for the next commit.
type StagingBuffer struct {
	mu       sync.Mutex
	items    []StagingItem
	maxSize  int
	inflight *CommitBatch

	log     *zap.Logger
	metrics *Metrics
	now     func() time.Time
}

// NewStagingBuffer creates a buffer holding at most maxSize items. A
// non-positive maxSize uses DefaultStagingSize.
func NewStagingBuffer(maxSize int, opts ...Option) *StagingBuffer {
	if maxSize <= 0 {
		maxSize = DefaultStagingSize
	}
	o := buildOptions(opts)
	return &StagingBuffer{
		maxSize: maxSize,
		log:     o.log.Named("staging"),
		metrics: o.metrics,
		now:     time.Now,
	}
}

// MaxSize returns the capacity.
func (b *StagingBuffer) MaxSize() int { return b.maxSize }

// Add stages ann for image, replacing whatever was staged for that image.
// It returns false without error when the buffer is full and the image is
// not yet represented; the caller should prompt for a commit. Polygons
// cannot be staged and yield ErrUnstageable.
func (b *StagingBuffer) Add(image ImageRef, ann Annotation) (bool, error) {
	var typ StagingType
	switch ann.(type) {
	case LabelAnnotation:
		typ = StagingLabel
	case BoundingBox:
		typ = StagingBBox
	case Polygon:
		return false, fmt.Errorf("stage %s annotation: %w", ann.Kind(), ErrUnstageable)
	default:
		return false, fmt.Errorf("stage %T: %w", ann, ErrUnstageable)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.accepts(image.ID) {
		b.log.Warn("staging buffer full",
			zap.String("image", image.ID), zap.Int("size", len(b.items)))
		b.metrics.staged(false, len(b.items))
		return false, nil
	}

	b.items = slices.DeleteFunc(b.items, func(it StagingItem) bool { return it.ImageKey == image.ID })
	b.items = append(b.items, StagingItem{
		ID:         uuid.NewString(),
		ImageKey:   image.ID,
		Image:      image,
		Type:       typ,
		Annotation: ann,
		Timestamp:  b.now(),
	})
	b.metrics.staged(true, len(b.items))
	b.log.Debug("staged",
		zap.String("image", image.ID), zap.Stringer("type", typ), zap.String("annotation", ann.AnnotationID()))
	return true, nil
}

// Remove deletes the item with the given ID. It reports whether it existed.
func (b *StagingBuffer) Remove(itemID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.items)
	b.items = slices.DeleteFunc(b.items, func(it StagingItem) bool { return it.ID == itemID })
	b.metrics.stagedLen(len(b.items))
	return len(b.items) != n
}

// RemoveByImage deletes every item staged for imageKey and returns how many
// were removed.
func (b *StagingBuffer) RemoveByImage(imageKey string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.items)
	b.items = slices.DeleteFunc(b.items, func(it StagingItem) bool { return it.ImageKey == imageKey })
	b.metrics.stagedLen(len(b.items))
	return n - len(b.items)
}

// Clear removes all items.
func (b *StagingBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = nil
	b.metrics.stagedLen(0)
}

// Find returns the item staged for imageKey with the given type and
// annotation ID.
func (b *StagingBuffer) Find(imageKey string, typ StagingType, annotationID string) (StagingItem, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, it := range b.items {
		if it.ImageKey == imageKey && it.Type == typ && it.Annotation.AnnotationID() == annotationID {
			return it, true
		}
	}
	return StagingItem{}, false
}

// Items returns a copy of the staged items in insertion order.
func (b *StagingBuffer) Items() []StagingItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.items)
}

// Len returns the number of staged items.
func (b *StagingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// IsFull reports whether the buffer is at capacity.
func (b *StagingBuffer) IsFull() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items) >= b.maxSize
}

// Accepts reports whether Add would take an item for imageKey: the image is
// already staged or the buffer has room.
func (b *StagingBuffer) Accepts(imageKey string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accepts(imageKey)
}

func (b *StagingBuffer) accepts(imageKey string) bool {
	return len(b.items) < b.maxSize ||
		slices.ContainsFunc(b.items, func(it StagingItem) bool { return it.ImageKey == imageKey })
}

// Stats summarizes the buffer.
func (b *StagingBuffer) Stats() StagingStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := StagingStats{
		Total:     len(b.items),
		ByType:    map[StagingType]int{StagingLabel: 0, StagingBBox: 0},
		ByImage:   make(map[string]int),
		Remaining: b.maxSize - len(b.items),
	}
	for _, it := range b.items {
		s.ByType[it.Type]++
		s.ByImage[it.ImageKey]++
	}
	return s
}

// PrepareForCommit groups the items by image, in the order each image was
// first staged. Records without any annotation are dropped.
func (b *StagingBuffer) PrepareForCommit() []CommitRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return prepareRecords(b.items)
}

func prepareRecords(items []StagingItem) []CommitRecord {
	var order []string
	groups := make(map[string]*CommitRecord)
	for _, it := range items {
		rec, ok := groups[it.ImageKey]
		if !ok {
			rec = &CommitRecord{DataID: it.Image.DatasetID, DataPath: it.Image.dataPath()}
			groups[it.ImageKey] = rec
			order = append(order, it.ImageKey)
		}
		switch a := it.Annotation.(type) {
		case LabelAnnotation:
			rec.LabelAnnotations = append(rec.LabelAnnotations, a)
		case BoundingBox:
			rec.BBoxAnnotations = append(rec.BBoxAnnotations, a)
		}
	}

	records := make([]CommitRecord, 0, len(order))
	for _, key := range order {
		rec := groups[key]
		if len(rec.LabelAnnotations) == 0 && len(rec.BBoxAnnotations) == 0 {
			continue
		}
		records = append(records, *rec)
	}
	return records
}

// InFlight reports whether a commit batch is outstanding.
func (b *StagingBuffer) InFlight() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inflight != nil
}

// BeginCommit snapshots the buffer and takes the commit lock. The caller
// must finish with CompleteCommit or AbortCommit.
func (b *StagingBuffer) BeginCommit() (*CommitBatch, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inflight != nil {
		return nil, ErrCommitInFlight
	}
	batch := &CommitBatch{
		Records: prepareRecords(b.items),
		itemIDs: make([]string, len(b.items)),
	}
	for i, it := range b.items {
		batch.itemIDs[i] = it.ID
	}
	b.inflight = batch
	return batch, nil
}

// CompleteCommit removes the items captured by batch that are still staged
// and releases the commit lock.
func (b *StagingBuffer) CompleteCommit(batch *CommitBatch) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if batch == nil || b.inflight != batch {
		return ErrStaleCommit
	}
	b.items = slices.DeleteFunc(b.items, func(it StagingItem) bool {
		return slices.Contains(batch.itemIDs, it.ID)
	})
	b.inflight = nil
	b.metrics.committed(true, len(batch.Records))
	b.metrics.stagedLen(len(b.items))
	return nil
}

// AbortCommit releases the commit lock without removing anything.
func (b *StagingBuffer) AbortCommit(batch *CommitBatch) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if batch == nil || b.inflight != batch {
		return ErrStaleCommit
	}
	b.inflight = nil
	b.metrics.committed(false, 0)
	return nil
}

// Commit runs a full commit cycle against c and returns the number of
// records committed. An empty buffer commits nothing and succeeds. On
// failure the buffer is left untouched.
func (b *StagingBuffer) Commit(ctx context.Context, c Committer) (int, error) {
	batch, err := b.BeginCommit()
	if err != nil {
		return 0, err
	}
	if len(batch.Records) == 0 {
		b.mu.Lock()
		b.inflight = nil
		b.mu.Unlock()
		return 0, nil
	}
	if err := c.Commit(ctx, batch.Records); err != nil {
		_ = b.AbortCommit(batch)
		b.log.Error("commit failed", zap.Int("records", len(batch.Records)), zap.Error(err))
		return 0, fmt.Errorf("commit %d records: %w", len(batch.Records), err)
	}
	if err := b.CompleteCommit(batch); err != nil {
		return 0, err
	}
	b.log.Info("committed", zap.Int("records", len(batch.Records)))
	return len(batch.Records), nil
}
