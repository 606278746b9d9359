// Package snapshots stores the wallet value time series.
package snapshots

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/gowal"
)

const (
	defaultSnapshotDir   = "./wal/wallet"
	snapshotSegmentLimit = 1000
	snapshotMaxSegments  = 100
	snapshotKeyPrefix    = "wallet_snapshot_"
)

// WALStore persists wallet snapshots in a WAL.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes a WAL-backed snapshot store under the provided directory.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultSnapshotDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "wallet_",
		SegmentThreshold: snapshotSegmentLimit,
		MaxSegments:      snapshotMaxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init wallet snapshot WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Save appends the snapshot.
func (s *WALStore) Save(snapshot domain.WalletSnapshot) error {
	if s == nil || s.wal == nil {
		return errors.New("wallet snapshot store is not initialized")
	}
	if snapshot.Currency == "" {
		return errors.New("wallet snapshot currency is required")
	}
	if snapshot.Timestamp.IsZero() {
		return errors.New("wallet snapshot timestamp is required")
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return errors.Wrap(err, "marshal wallet snapshot")
	}

	key := snapshotKeyPrefix + snapshot.Currency

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, key, payload)
}

// All returns every stored snapshot in write order.
func (s *WALStore) All() ([]domain.WalletSnapshotRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("wallet snapshot store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		records []domain.WalletSnapshotRecord
		decErr  error
		idx     uint64
	)
	for msg := range s.wal.Iterator() {
		idx++
		if decErr != nil || !strings.HasPrefix(msg.Key, snapshotKeyPrefix) {
			continue
		}
		var snapshot domain.WalletSnapshot
		if err := json.Unmarshal(msg.Value, &snapshot); err != nil {
			decErr = errors.Wrap(err, "decode wallet snapshot")
			continue
		}
		records = append(records, domain.WalletSnapshotRecord{Index: idx, Snapshot: snapshot})
	}
	if decErr != nil {
		return nil, decErr
	}

	return records, nil
}

// Latest returns the most recent snapshot.
func (s *WALStore) Latest() (domain.WalletSnapshot, bool, error) {
	records, err := s.All()
	if err != nil {
		return domain.WalletSnapshot{}, false, err
	}
	if len(records) == 0 {
		return domain.WalletSnapshot{}, false, nil
	}
	return records[len(records)-1].Snapshot, true, nil
}

// CurrentIndex returns the latest WAL index stored.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("wallet snapshot store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
