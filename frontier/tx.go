package frontier

import (
	"database/sql"

	"github.com/iParadigms/seeker"
)

// Tx wraps a *sql.Tx with explicit Commit/Rollback, replacing the
// original's drop-commits-or-panics transaction: a Tx that is never
// finalized by the caller simply leaks an open transaction rather than
// silently committing or crashing the process.
type Tx struct {
	tx *sql.Tx
}

// Begin starts a transaction for one public Store write operation (or one
// chunk of UpdateMaxInlinksDomains).
func (s *Store) Begin() (*Tx, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, seeker.Errf("frontier.Begin", seeker.KindIO, err)
	}
	return &Tx{tx: tx}, nil
}

func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return seeker.Errf("frontier.Tx.Commit", seeker.KindIO, err)
	}
	return nil
}

func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil {
		return seeker.Errf("frontier.Tx.Rollback", seeker.KindIO, err)
	}
	return nil
}
