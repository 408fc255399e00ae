// Package storage persists magic multipliers, game records and play
// statistics in BadgerDB.
package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/hailam/athena/internal/magic"
)

// ErrNotFound is returned when a game record does not exist.
var ErrNotFound = errors.New("not found")

const (
	keyStats        = "stats"
	magicKeyPrefix  = "magic/"
	gameKeyPrefix   = "game/"
	magicValueBytes = 64 * 8
)

// GameRecord is the stored form of a game: enough to replay it.
type GameRecord struct {
	ID        string    `json:"id"`
	StartFEN  string    `json:"start_fen"`
	Moves     []string  `json:"moves"`
	FEN       string    `json:"fen"`
	Status    string    `json:"status"`
	Result    string    `json:"result"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stats counts finished games by result.
type Stats struct {
	GamesFinished int `json:"games_finished"`
	WhiteWins     int `json:"white_wins"`
	BlackWins     int `json:"black_wins"`
	Draws         int `json:"draws"`
}

// DrawRate returns the percentage of finished games that were drawn.
func (s Stats) DrawRate() float64 {
	if s.GamesFinished == 0 {
		return 0
	}
	return float64(s.Draws) / float64(s.GamesFinished) * 100
}

// Store wraps a badger database.
type Store struct {
	db *badger.DB
}

var _ magic.Cache = (*Store)(nil)

// Open opens the database in dataDir, or in the default data directory when
// dataDir is empty.
func Open(dataDir string) (*Store, error) {
	dir, err := processEnv.databaseDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("database dir: %w", err)
	}
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	return open(opts)
}

// OpenInMemory opens a database that lives only as long as the process.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts)
}

func open(opts badger.Options) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// LoadMagics implements magic.Cache.
func (s *Store) LoadMagics(kind magic.Kind) ([64]uint64, bool, error) {
	var magics [64]uint64
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(magicKeyPrefix + kind.String()))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != magicValueBytes {
				return nil // unreadable entry, treat as missing
			}
			for i := range magics {
				magics[i] = binary.LittleEndian.Uint64(val[i*8:])
			}
			found = true
			return nil
		})
	})
	return magics, found, err
}

// StoreMagics implements magic.Cache.
func (s *Store) StoreMagics(kind magic.Kind, magics [64]uint64) error {
	val := make([]byte, magicValueBytes)
	for i, m := range magics {
		binary.LittleEndian.PutUint64(val[i*8:], m)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(magicKeyPrefix+kind.String()), val)
	})
}

// SaveGame writes rec, stamping UpdatedAt (and CreatedAt on first save).
func (s *Store) SaveGame(rec *GameRecord) error {
	if rec.ID == "" {
		return errors.New("save game: empty id")
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(gameKeyPrefix+rec.ID), data)
	})
}

// LoadGame returns the record for id, or ErrNotFound.
func (s *Store) LoadGame(id string) (*GameRecord, error) {
	var rec GameRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(gameKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("game %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteGame removes the record for id, or returns ErrNotFound.
func (s *Store) DeleteGame(id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(gameKeyPrefix + id)
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("game %s: %w", id, ErrNotFound)
		} else if err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

// ListGames returns every stored game, most recently updated first.
func (s *Store) ListGames() ([]GameRecord, error) {
	var out []GameRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(gameKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var rec GameRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, err
}

// LoadStats returns the stored statistics, zero if none.
func (s *Store) LoadStats() (Stats, error) {
	var stats Stats
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyStats))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &stats)
		})
	})
	return stats, err
}

// RecordResult adds a finished game with the given PGN result token.
func (s *Store) RecordResult(result string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		var stats Stats
		item, err := txn.Get([]byte(keyStats))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &stats)
			}); err != nil {
				return err
			}
		}

		switch result {
		case "1-0":
			stats.WhiteWins++
		case "0-1":
			stats.BlackWins++
		case "1/2-1/2":
			stats.Draws++
		default:
			return fmt.Errorf("record result: unfinished game %q", result)
		}
		stats.GamesFinished++

		data, err := json.Marshal(stats)
		if err != nil {
			return err
		}
		return txn.Set([]byte(keyStats), data)
	})
}
