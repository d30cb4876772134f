// Package leveldb provides a bdk.Translator which stores the two way
// original-id/dense-id mapping in leveldb, for runs where the kept identifier
// maps are too large to hold in memory.
package leveldb

import (
	"encoding/binary"
	"hash/fnv"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bookdata/bdk"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

var _ bdk.Translator = &Translator{}

// Translator is a bdk.Translator backed by a pair of leveldbs per entity
// class.
type Translator struct {
	lock    sync.RWMutex
	dirname string
	classes map[string]*ClassTranslator
}

// NewTranslator gets a new Translator storing its mappings under dirname.
// Classes not named here are created lazily on first use.
func NewTranslator(dirname string, classes ...string) (lt *Translator, err error) {
	lt = &Translator{
		dirname: dirname,
		classes: make(map[string]*ClassTranslator),
	}
	for _, class := range classes {
		ct, err := NewClassTranslator(dirname, class)
		if err != nil {
			return nil, errors.Wrap(err, "making ClassTranslator")
		}
		lt.classes[class] = ct
	}
	return lt, err
}

// Close closes all of the underlying leveldb instances.
func (lt *Translator) Close() error {
	errs := make(errorList, 0)
	for class, ct := range lt.classes {
		err := ct.Close()
		if err != nil {
			errs = append(errs, errors.Wrapf(err, "class: %v", class))
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (lt *Translator) getClassTranslator(class string) (*ClassTranslator, error) {
	lt.lock.RLock()
	if ct, ok := lt.classes[class]; ok {
		lt.lock.RUnlock()
		return ct, nil
	}
	lt.lock.RUnlock()
	lt.lock.Lock()
	defer lt.lock.Unlock()
	if ct, ok := lt.classes[class]; ok {
		return ct, nil
	}
	ct, err := NewClassTranslator(lt.dirname, class)
	if err != nil {
		return nil, errors.Wrap(err, "creating new ClassTranslator")
	}
	lt.classes[class] = ct
	return ct, nil
}

// Get returns the original identifier mapped to the given id in the given
// class.
func (lt *Translator) Get(class string, id uint64) (string, error) {
	ct, err := lt.getClassTranslator(class)
	if err != nil {
		return "", errors.Wrap(err, "getting class translator")
	}
	return ct.Get(id)
}

// GetID returns the integer id associated with the given original identifier
// in the given class, allocating the next id if it is unseen.
func (lt *Translator) GetID(class string, orig string) (uint64, error) {
	ct, err := lt.getClassTranslator(class)
	if err != nil {
		return 0, errors.Wrap(err, "getting class translator")
	}
	return ct.GetID(orig)
}

// ClassTranslator holds the id mapping for a single entity class in two
// leveldbs, one for each direction.
type ClassTranslator struct {
	lock    valueLocker
	idMap   *leveldb.DB
	origMap *leveldb.DB
	curID   *uint64
}

// NewClassTranslator creates a new ClassTranslator which uses leveldb as
// backing storage.
func NewClassTranslator(dirname, class string) (*ClassTranslator, error) {
	err := os.MkdirAll(dirname, 0700)
	if err != nil {
		return nil, errors.Wrap(err, "making directory")
	}
	var initialID uint64
	ct := &ClassTranslator{
		curID: &initialID,
		lock:  newBucketVLock(),
	}
	ct.idMap, err = leveldb.OpenFile(dirname+"/"+class+"-id", &opt.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "opening leveldb at %v", dirname+"/"+class+"-id")
	}
	ct.origMap, err = leveldb.OpenFile(dirname+"/"+class+"-orig", &opt.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "opening leveldb at %v", dirname+"/"+class+"-orig")
	}
	return ct, nil
}

// Close closes the two leveldbs used by the ClassTranslator.
func (ct *ClassTranslator) Close() error {
	errs := make(errorList, 0)
	err := ct.idMap.Close()
	if err != nil {
		errs = append(errs, errors.Wrap(err, "closing idMap"))
	}
	err = ct.origMap.Close()
	if err != nil {
		errs = append(errs, errors.Wrap(err, "closing origMap"))
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Get returns the original identifier mapped to the given id.
func (ct *ClassTranslator) Get(id uint64) (string, error) {
	idBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(idBytes, id)
	data, err := ct.idMap.Get(idBytes, nil)
	if err != nil {
		return "", errors.Wrap(err, "fetching from idMap")
	}
	return string(data), nil
}

// GetID returns the integer id associated with the given original
// identifier. It allocates the next id (starting at 1) if the identifier is
// not found.
func (ct *ClassTranslator) GetID(orig string) (id uint64, err error) {
	origBytes := []byte(orig)

	// expecting most lookups after the root pass to hit
	data, err := ct.origMap.Get(origBytes, &opt.ReadOptions{})
	if err != nil && err != leveldb.ErrNotFound {
		return 0, errors.Wrap(err, "trying to read orig map")
	} else if err == nil {
		return binary.BigEndian.Uint64(data), nil
	}

	ct.lock.Lock(origBytes)
	defer ct.lock.Unlock(origBytes)
	// re-read after locking
	data, err = ct.origMap.Get(origBytes, &opt.ReadOptions{})
	if err != nil && err != leveldb.ErrNotFound {
		return 0, errors.Wrap(err, "trying to read orig map")
	} else if err == nil {
		return binary.BigEndian.Uint64(data), nil
	}

	idBytes := make([]byte, 8)
	next := atomic.AddUint64(ct.curID, 1)
	binary.BigEndian.PutUint64(idBytes, next)
	err = ct.idMap.Put(idBytes, origBytes, &opt.WriteOptions{})
	if err != nil {
		return 0, errors.Wrap(err, "putting new id into idMap")
	}
	err = ct.origMap.Put(origBytes, idBytes, &opt.WriteOptions{})
	if err != nil {
		return 0, errors.Wrap(err, "putting new id into origMap")
	}
	return next, nil
}

type errorList []error

func (errs errorList) Error() string {
	errstrings := make([]string, len(errs))
	for i, err := range errs {
		errstrings[i] = err.Error()
	}
	return strings.Join(errstrings, "; ")
}

type valueLocker interface {
	Lock(val []byte)
	Unlock(val []byte)
}

type bucketVLock struct {
	ms []sync.Mutex
}

func newBucketVLock() bucketVLock {
	return bucketVLock{
		ms: make([]sync.Mutex, 1000),
	}
}

func (b bucketVLock) Lock(val []byte) {
	hsh := fnv.New32a()
	hsh.Write(val) // never returns error for hash
	b.ms[hsh.Sum32()%1000].Lock()
}

func (b bucketVLock) Unlock(val []byte) {
	hsh := fnv.New32a()
	hsh.Write(val) // never returns error for hash
	b.ms[hsh.Sum32()%1000].Unlock()
}
