// Package id2node is the reverse lookup from a webgraph.NodeID back to the
// Node it was derived from. It is a log-structured KV store: bbolt holds the
// authoritative (id, name) pairs, and an in-memory FST built over the same
// keys on Flush answers Has without a bbolt transaction. Iter walks a bbolt
// cursor.
package id2node

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/blevesearch/vellum"
	"go.etcd.io/bbolt"

	"github.com/iParadigms/seeker"
)

var bucketName = []byte("id2node")

var errMismatchedLengths = errors.New("ids and names have different lengths")

// Store maps NodeID to the name it was derived from. Writes go straight to
// bbolt; Flush rebuilds the FST that Has consults. A Store with no FST built
// yet still answers Has, through Get.
type Store struct {
	db  *bbolt.DB
	fst *vellum.FST
}

// Open opens (creating if absent) a bbolt-backed store at path with NoSync
// set, so commits skip fsync for throughput. Recent writes can be lost on a
// crash; every NodeID is derived from its name, so a lost mapping is
// rebuilt by re-inserting the names.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o644, &bbolt.Options{Timeout: 0})
	if err != nil {
		return nil, seeker.Errf("id2node.Open", seeker.KindIO, err)
	}
	db.NoSync = true
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, seeker.Errf("id2node.Open", seeker.KindIO, err)
	}
	return &Store{db: db}, nil
}

func encodeKey(id uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], id)
	return k[:]
}

// Put records name for id, overwriting any prior value.
func (s *Store) Put(id uint64, name string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put(encodeKey(id), []byte(name))
	})
	if err != nil {
		return seeker.Errf("id2node.Put", seeker.KindIO, err)
	}
	return nil
}

// BatchPut writes every (id, name) pair in one bbolt transaction, amortizing
// the per-transaction commit cost across the whole batch — the same reason the inverted
// index's writer buffers before committing.
func (s *Store) BatchPut(ids []uint64, names []string) error {
	if len(ids) != len(names) {
		return seeker.Errf("id2node.BatchPut", seeker.KindConsistency, errMismatchedLengths)
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		for i, id := range ids {
			if err := b.Put(encodeKey(id), []byte(names[i])); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return seeker.Errf("id2node.BatchPut", seeker.KindIO, err)
	}
	return nil
}

// Get returns the name stored for id, or ok=false if absent.
func (s *Store) Get(id uint64) (name string, ok bool, err error) {
	txErr := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketName).Get(encodeKey(id))
		if v != nil {
			name = string(v)
			ok = true
		}
		return nil
	})
	if txErr != nil {
		return "", false, seeker.Errf("id2node.Get", seeker.KindIO, txErr)
	}
	return name, ok, nil
}

// Flush rebuilds the in-memory FST from the current bbolt contents, ordered
// by NodeID ascending (vellum requires keys presented in sorted order). This
// is the only operation that needs a full bucket scan; Put/BatchPut between
// flushes don't pay for it.
func (s *Store) Flush() error {
	var buf bytes.Buffer
	builder, err := vellum.New(&buf, nil)
	if err != nil {
		return seeker.Errf("id2node.Flush", seeker.KindIO, err)
	}

	err = s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()
		// vellum requires keys inserted in lexicographic order; a bbolt
		// cursor over a fixed-width big-endian key already yields NodeID
		// ascending, which is also byte-lexicographic.
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if err := builder.Insert(k, uint64(len(v))); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return seeker.Errf("id2node.Flush", seeker.KindIO, err)
	}
	if err := builder.Close(); err != nil {
		return seeker.Errf("id2node.Flush", seeker.KindIO, err)
	}

	fst, err := vellum.Load(buf.Bytes())
	if err != nil {
		return seeker.Errf("id2node.Flush", seeker.KindIO, err)
	}
	s.fst = fst
	return nil
}

// Iter walks every (id, name) pair in NodeID-ascending order.
func (s *Store) Iter(fn func(id uint64, name string) bool) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if !fn(binary.BigEndian.Uint64(k), string(v)) {
				break
			}
		}
		return nil
	})
}

// Has reports whether id is present, consulting the FST when built (no
// bbolt transaction needed) and falling back to a direct Get otherwise,
// including for ids put since the last Flush.
func (s *Store) Has(id uint64) (bool, error) {
	if s.fst != nil {
		if _, ok, err := s.fst.Get(encodeKey(id)); err != nil || ok {
			return ok, err
		}
	}
	_, ok, err := s.Get(id)
	return ok, err
}

func (s *Store) Close() error {
	return s.db.Close()
}
