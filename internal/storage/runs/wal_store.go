// Package runs keeps a log of rebalance run reports.
package runs

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/gowal"
)

const (
	defaultRunsDir  = "./wal/runs"
	runSegmentLimit = 500
	runMaxSegments  = 50
	runKeyPrefix    = "rebalance_run_"
)

// WALStore persists rebalance reports in a WAL.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.Mutex
}

// NewWALStore opens the run log under dir.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultRunsDir
	}

	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              dir,
		Prefix:           "runs_",
		SegmentThreshold: runSegmentLimit,
		MaxSegments:      runMaxSegments,
		IsInSyncDiskMode: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init rebalance run WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Save appends report. Reports need an id.
func (s *WALStore) Save(report domain.RunReport) error {
	if report.ID == "" {
		return errors.New("rebalance report id is required")
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return errors.Wrap(err, "marshal rebalance report")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Write(s.wal.CurrentIndex()+1, runKeyPrefix+report.ID, payload)
}

// All returns stored reports, oldest first.
func (s *WALStore) All() ([]domain.RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		records []domain.RunRecord
		decErr  error
		idx     uint64
	)
	for msg := range s.wal.Iterator() {
		idx++
		if decErr != nil || !strings.HasPrefix(msg.Key, runKeyPrefix) {
			continue
		}
		var report domain.RunReport
		if err := json.Unmarshal(msg.Value, &report); err != nil {
			decErr = errors.Wrapf(err, "decode rebalance report %s", strings.TrimPrefix(msg.Key, runKeyPrefix))
			continue
		}
		records = append(records, domain.RunRecord{Index: idx, Report: report})
	}

	return records, decErr
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
