// Package storage persists completed matches, settlement records, and
// whitelist snapshot metadata in an embedded Pebble key-value store so the
// core can recover its query surface across restarts.
package storage

import (
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/duskpool/core/pkg/orderbook"
	"github.com/duskpool/core/pkg/settlement"
)

// PebbleStore is the single-writer-per-key-prefix persistence layer backing
// the completed-matches log, the settlement log, and whitelist root
// metadata.
type PebbleStore struct {
	db *pebble.DB
}

// NewPebbleStore opens (creating if necessary) a Pebble database at path.
func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("storage: opening pebble at %q: %w", path, err)
	}
	return &PebbleStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *PebbleStore) Close() error { return s.db.Close() }

// SaveMatch appends a completed match to the matches log.
func (s *PebbleStore) SaveMatch(m orderbook.Match) error {
	val, err := encodeGob(m)
	if err != nil {
		return fmt.Errorf("storage: encoding match %s: %w", m.MatchID, err)
	}
	if err := s.db.Set(matchKey(m.MatchID), val, pebble.Sync); err != nil {
		return fmt.Errorf("storage: saving match %s: %w", m.MatchID, err)
	}
	return nil
}

// GetMatch loads one completed match by id.
func (s *PebbleStore) GetMatch(matchID string) (orderbook.Match, bool, error) {
	val, closer, err := s.db.Get(matchKey(matchID))
	if err == pebble.ErrNotFound {
		return orderbook.Match{}, false, nil
	}
	if err != nil {
		return orderbook.Match{}, false, fmt.Errorf("storage: loading match %s: %w", matchID, err)
	}
	defer closer.Close()

	var out orderbook.Match
	if err := decodeGob(val, &out); err != nil {
		return orderbook.Match{}, false, fmt.Errorf("storage: decoding match %s: %w", matchID, err)
	}
	return out, true, nil
}

// ListMatches returns every completed match in key order.
func (s *PebbleStore) ListMatches() ([]orderbook.Match, error) {
	prefix := matchPrefix()
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: keyUpperBound(prefix)})
	if err != nil {
		return nil, fmt.Errorf("storage: iterating matches: %w", err)
	}
	defer iter.Close()

	var out []orderbook.Match
	for iter.First(); iter.Valid(); iter.Next() {
		var m orderbook.Match
		if err := decodeGob(iter.Value(), &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// SaveSettlement persists the current snapshot of a settlement record.
func (s *PebbleStore) SaveSettlement(r *settlement.Record) error {
	val, err := encodeGob(*r)
	if err != nil {
		return fmt.Errorf("storage: encoding settlement %s: %w", r.MatchID, err)
	}
	if err := s.db.Set(settlementKey(r.MatchID), val, pebble.Sync); err != nil {
		return fmt.Errorf("storage: saving settlement %s: %w", r.MatchID, err)
	}
	return nil
}

// GetSettlement loads one settlement record by match id.
func (s *PebbleStore) GetSettlement(matchID string) (*settlement.Record, bool, error) {
	val, closer, err := s.db.Get(settlementKey(matchID))
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("storage: loading settlement %s: %w", matchID, err)
	}
	defer closer.Close()

	var out settlement.Record
	if err := decodeGob(val, &out); err != nil {
		return nil, false, fmt.Errorf("storage: decoding settlement %s: %w", matchID, err)
	}
	return &out, true, nil
}

// ListSettlements returns every persisted settlement record.
func (s *PebbleStore) ListSettlements() ([]*settlement.Record, error) {
	prefix := settlementPrefix()
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: keyUpperBound(prefix)})
	if err != nil {
		return nil, fmt.Errorf("storage: iterating settlements: %w", err)
	}
	defer iter.Close()

	var out []*settlement.Record
	for iter.First(); iter.Valid(); iter.Next() {
		var r settlement.Record
		if err := decodeGob(iter.Value(), &r); err != nil {
			continue
		}
		out = append(out, &r)
	}
	return out, nil
}

// SetWhitelistRoot records the current whitelist root (hex) for restart
// recovery.
func (s *PebbleStore) SetWhitelistRoot(rootHex string) error {
	if err := s.db.Set(whitelistRootKey(), []byte(rootHex), pebble.Sync); err != nil {
		return fmt.Errorf("storage: saving whitelist root: %w", err)
	}
	return nil
}

// GetWhitelistRoot returns the last-persisted whitelist root, if any.
func (s *PebbleStore) GetWhitelistRoot() (string, bool, error) {
	val, closer, err := s.db.Get(whitelistRootKey())
	if err == pebble.ErrNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("storage: loading whitelist root: %w", err)
	}
	defer closer.Close()
	return string(val), true, nil
}

// SetWhitelistLeaf records a participant id element (hex) at a leaf index.
func (s *PebbleStore) SetWhitelistLeaf(index uint64, idHex string) error {
	if err := s.db.Set(whitelistLeafKey(index), []byte(idHex), pebble.Sync); err != nil {
		return fmt.Errorf("storage: saving whitelist leaf %d: %w", index, err)
	}
	return nil
}

// GetWhitelistLeaf returns the id element (hex) stored at a leaf index.
func (s *PebbleStore) GetWhitelistLeaf(index uint64) (string, bool, error) {
	val, closer, err := s.db.Get(whitelistLeafKey(index))
	if err == pebble.ErrNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("storage: loading whitelist leaf %d: %w", index, err)
	}
	defer closer.Close()
	return string(val), true, nil
}
