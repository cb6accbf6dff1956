// Package snapshot persists book snapshots in Redis so a restarted engine
// can rebuild its books without replaying the full order stream.
package snapshot

import (
	"context"
	"encoding/json"

	snapshotv1 "github.com/azaynul10/CarbonPro-AI/internal/domain/snapshot/v1"
	"github.com/azaynul10/CarbonPro-AI/pkg/errors"
	"github.com/azaynul10/CarbonPro-AI/pkg/logger"
	"github.com/azaynul10/CarbonPro-AI/pkg/redis"
)

// Store keeps one snapshot per instrument under a prefixed Redis key.
type Store struct {
	keyPrefix string
	client    redis.Client
	logger    logger.Interface
}

var _ snapshotv1.Store = (*Store)(nil)

// NewStore creates a Redis-backed snapshot store.
func NewStore(client redis.Client, keyPrefix string, log logger.Interface) *Store {
	return &Store{
		keyPrefix: keyPrefix,
		client:    client,
		logger:    log,
	}
}

// Store persists the snapshot, replacing any previous one for the
// instrument.
func (s *Store) Store(ctx context.Context, snapshot *snapshotv1.Snapshot) error {
	buf, err := json.Marshal(snapshot)
	if err != nil {
		return errors.NewTracer("snapshot marshal failed").
			WithCode(errors.SnapshotStoreError).Wrap(err)
	}

	if err := s.client.Set(ctx, s.key(snapshot.InstrumentID), buf, 0); err != nil {
		return errors.NewTracer("snapshot store failed").
			WithCode(errors.SnapshotStoreError).Wrap(err)
	}

	s.logger.InfoContext(ctx, "snapshot stored",
		logger.Field{Key: "instrumentID", Value: snapshot.InstrumentID},
		logger.Field{Key: "orders", Value: len(snapshot.Orders)},
	)
	return nil
}

// Load returns the latest snapshot for the instrument, or nil when none
// exists.
func (s *Store) Load(ctx context.Context, instrumentID string) (*snapshotv1.Snapshot, error) {
	data, err := s.client.Get(ctx, s.key(instrumentID))
	if err != nil {
		return nil, errors.NewTracer("snapshot load failed").
			WithCode(errors.SnapshotStoreError).Wrap(err)
	}
	if data == "" {
		s.logger.WarnContext(ctx, "no snapshot found",
			logger.Field{Key: "instrumentID", Value: instrumentID},
		)
		return nil, nil
	}

	var snapshot snapshotv1.Snapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		return nil, errors.NewTracer("snapshot unmarshal failed").
			WithCode(errors.SnapshotStoreError).Wrap(err)
	}
	return &snapshot, nil
}

func (s *Store) key(instrumentID string) string {
	return s.keyPrefix + instrumentID
}
