// Package deadletter stores envelopes whose retry budget was exhausted.
//
// DESIGN: A small SQLite table keeps the serialized wire payload so an
// operator can inspect or replay failed telemetry after an ingestion
// outage. Entries age out on a TTL; a background sweep purges them the
// same way the relay's other TTL'd state is cleaned.
package deadletter

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS dead_letters (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	name       TEXT NOT NULL,
	body       BLOB NOT NULL,
	error      TEXT,
	attempts   INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_dead_letters_created ON dead_letters(created_at);
`

// Letter is one parked envelope.
type Letter struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Name      string    `json:"name"`
	Body      []byte    `json:"body"`
	Error     string    `json:"error,omitempty"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is a SQLite-backed dead-letter store.
type Store struct {
	db       *sql.DB
	ttl      time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
}

// Open opens (creating if needed) the store at path with the given TTL.
func Open(path string, ttl time.Duration) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open dead-letter store %q: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init dead-letter schema: %w", err)
	}

	s := &Store{
		db:       db,
		ttl:      ttl,
		stopChan: make(chan struct{}),
	}
	go s.sweep()
	return s, nil
}

// Put parks an envelope.
func (s *Store) Put(letter Letter) error {
	if letter.CreatedAt.IsZero() {
		letter.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO dead_letters (id, kind, name, body, error, attempts, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		letter.ID, letter.Kind, letter.Name, letter.Body, letter.Error, letter.Attempts,
		letter.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert dead letter %s: %w", letter.ID, err)
	}
	return nil
}

// List returns up to limit parked envelopes, oldest first.
func (s *Store) List(limit int) ([]Letter, error) {
	rows, err := s.db.Query(
		`SELECT id, kind, name, body, error, attempts, created_at
		 FROM dead_letters ORDER BY created_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	defer rows.Close()

	var letters []Letter
	for rows.Next() {
		var l Letter
		var createdAt int64
		if err := rows.Scan(&l.ID, &l.Kind, &l.Name, &l.Body, &l.Error, &l.Attempts, &createdAt); err != nil {
			return nil, fmt.Errorf("scan dead letter: %w", err)
		}
		l.CreatedAt = time.Unix(createdAt, 0)
		letters = append(letters, l)
	}
	return letters, rows.Err()
}

// Delete removes one parked envelope, e.g. after a successful replay.
func (s *Store) Delete(id string) error {
	if _, err := s.db.Exec(`DELETE FROM dead_letters WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete dead letter %s: %w", id, err)
	}
	return nil
}

// Count returns the number of parked envelopes.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM dead_letters`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count dead letters: %w", err)
	}
	return n, nil
}

// Purge removes entries older than the TTL and returns how many went.
func (s *Store) Purge() (int64, error) {
	cutoff := time.Now().Add(-s.ttl).Unix()
	res, err := s.db.Exec(`DELETE FROM dead_letters WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge dead letters: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Close stops the sweep goroutine and closes the database.
func (s *Store) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	return s.db.Close()
}

// sweep periodically purges expired entries.
func (s *Store) sweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			if n, err := s.Purge(); err != nil {
				log.Error().Err(err).Msg("dead-letter purge failed")
			} else if n > 0 {
				log.Info().Int64("purged", n).Msg("dead-letter purge")
			}
		}
	}
}
