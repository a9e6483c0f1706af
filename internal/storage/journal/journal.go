// Package journal persists trading events in a write-ahead log. With no
// database in the system, the journal plus the log stream form the
// complete audit trail. Position state is deliberately not recovered
// from it on restart.
package journal

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/dmarques/ciclo/internal/domain"
)

const (
	// DefaultDir is the journal location when config leaves it unset.
	DefaultDir = "./wal/journal"

	segmentThreshold = 1000
	maxSegments      = 100

	eventKeyPrefix = "event_"
)

// Journal is a WAL-backed append-only event store.
type Journal struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// Open initializes the journal in the given directory.
func Open(dir string) (*Journal, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "log_",
		SegmentThreshold: segmentThreshold,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init journal WAL")
	}

	return &Journal{wal: wal}, nil
}

// Append writes the event to the journal.
func (j *Journal) Append(event domain.Event) error {
	if j == nil || j.wal == nil {
		return errors.New("journal is not initialized")
	}
	if event.Pair == "" {
		return errors.New("journal event pair is required")
	}

	payload, err := marshalEvent(event)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("%s%s_%s", eventKeyPrefix, event.Kind, event.Pair)

	j.mu.Lock()
	defer j.mu.Unlock()

	nextIndex := j.wal.CurrentIndex() + 1
	return j.wal.Write(nextIndex, key, payload)
}

// EventsAfter returns all events written after the provided index.
func (j *Journal) EventsAfter(index uint64) ([]domain.EventRecord, error) {
	if j == nil || j.wal == nil {
		return nil, errors.New("journal is not initialized")
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	current := j.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]domain.EventRecord, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := j.wal.Get(idx)
		if err != nil {
			continue
		}
		if !strings.HasPrefix(key, eventKeyPrefix) {
			continue
		}

		event, err := unmarshalEvent(payload)
		if err != nil {
			return nil, err
		}
		records = append(records, domain.EventRecord{Index: idx, Event: event})
	}

	return records, nil
}

// CurrentIndex returns the latest index stored.
func (j *Journal) CurrentIndex() uint64 {
	if j == nil || j.wal == nil {
		return 0
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	return j.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (j *Journal) Close() error {
	if j == nil || j.wal == nil {
		return errors.New("journal is not initialized")
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	return j.wal.Close()
}
