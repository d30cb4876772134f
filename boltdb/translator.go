// Package boltdb provides a bdk.Translator implementation using boltdb.
// BoltDB is great, but the leveldb translator has better write performance
// for the id-allocation-heavy root pass; prefer it unless a single mapping
// file is required.
package boltdb

import (
	"encoding/binary"
	"time"

	"github.com/boltdb/bolt"
	"github.com/bookdata/bdk"
	"github.com/pkg/errors"
)

var (
	idBucket   = []byte("idKey")
	origBucket = []byte("origKey")
)

var _ bdk.Translator = &Translator{}

// Translator is a bdk.Translator which stores the two way id mapping for all
// entity classes in one boltdb file, one nested bucket per class and
// direction.
type Translator struct {
	Db *bolt.DB
}

// NewTranslator opens (creating if necessary) the boltdb file at filename and
// ensures buckets exist for the named classes.
func NewTranslator(filename string, classes ...string) (bt *Translator, err error) {
	bt = &Translator{}
	bt.Db, err = bolt.Open(filename, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening db file '%v'", filename)
	}
	err = bt.Db.Update(func(tx *bolt.Tx) error {
		ib, err := tx.CreateBucketIfNotExists(idBucket)
		if err != nil {
			return errors.Wrap(err, "creating idKey bucket")
		}
		ob, err := tx.CreateBucketIfNotExists(origBucket)
		if err != nil {
			return errors.Wrap(err, "creating origKey bucket")
		}
		for _, class := range classes {
			if _, err := ib.CreateBucketIfNotExists([]byte(class)); err != nil {
				return errors.Wrapf(err, "adding %s to id bucket", class)
			}
			if _, err := ob.CreateBucketIfNotExists([]byte(class)); err != nil {
				return errors.Wrapf(err, "adding %s to orig bucket", class)
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "ensuring bucket existence")
	}
	return bt, nil
}

// Close syncs and closes the underlying boltdb.
func (bt *Translator) Close() error {
	err := bt.Db.Sync()
	if err != nil {
		return errors.Wrap(err, "syncing db")
	}
	return bt.Db.Close()
}

// Get returns the original identifier previously mapped to id in class.
func (bt *Translator) Get(class string, id uint64) (orig string, err error) {
	err = bt.Db.View(func(tx *bolt.Tx) error {
		fib := tx.Bucket(idBucket).Bucket([]byte(class))
		if fib == nil {
			return errors.Errorf("unknown class '%v'", class)
		}
		idBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(idBytes, id)
		val := fib.Get(idBytes)
		if val == nil {
			return errors.Errorf("id %d not found in class '%v'", id, class)
		}
		orig = string(val)
		return nil
	})
	return orig, err
}

// GetID maps orig to a dense id within class, allocating the next id
// (bolt bucket sequences start at 1) on first sight.
func (bt *Translator) GetID(class string, orig string) (id uint64, err error) {
	origBytes := []byte(orig)

	// fast path: already mapped
	err = bt.Db.View(func(tx *bolt.Tx) error {
		fob := tx.Bucket(origBucket).Bucket([]byte(class))
		if fob == nil {
			return nil
		}
		if val := fob.Get(origBytes); val != nil {
			id = binary.BigEndian.Uint64(val)
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "reading orig bucket")
	}
	if id != 0 {
		return id, nil
	}

	err = bt.Db.Update(func(tx *bolt.Tx) error {
		fib, err := tx.Bucket(idBucket).CreateBucketIfNotExists([]byte(class))
		if err != nil {
			return errors.Wrapf(err, "adding %s to id bucket", class)
		}
		fob, err := tx.Bucket(origBucket).CreateBucketIfNotExists([]byte(class))
		if err != nil {
			return errors.Wrapf(err, "adding %s to orig bucket", class)
		}
		// re-check under the write lock
		if val := fob.Get(origBytes); val != nil {
			id = binary.BigEndian.Uint64(val)
			return nil
		}
		id, err = fob.NextSequence()
		if err != nil {
			return errors.Wrap(err, "getting next sequence")
		}
		idBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(idBytes, id)
		if err := fib.Put(idBytes, origBytes); err != nil {
			return errors.Wrap(err, "putting id")
		}
		return errors.Wrap(fob.Put(origBytes, idBytes), "putting orig")
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}
