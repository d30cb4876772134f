package bdk

import (
	"sync"

	"github.com/pkg/errors"
)

// Translator maps original string identifiers of a given entity class (user,
// book, author...) to dense integer ids and back. Implementations should be
// threadsafe and allocate ids monotonically from 1 in first-seen order within
// each class. Callers are expected to check membership against the relevant
// KeepSet before calling GetID - the mapping only ever holds identifiers
// which survived filtering.
type Translator interface {
	Get(class string, id uint64) (string, error)
	GetID(class string, orig string) (uint64, error)
}

// ClassTranslator works like a Translator for a single entity class.
type ClassTranslator interface {
	Get(id uint64) (string, error)
	GetID(orig string) (uint64, error)
}

// MapTranslator is an in-memory implementation of Translator using maps.
type MapTranslator struct {
	lock    sync.RWMutex
	classes map[string]*MapClassTranslator
}

// NewMapTranslator creates a new MapTranslator.
func NewMapTranslator() *MapTranslator {
	return &MapTranslator{
		classes: make(map[string]*MapClassTranslator),
	}
}

func (m *MapTranslator) getClassTranslator(class string) *MapClassTranslator {
	m.lock.RLock()
	if ct, ok := m.classes[class]; ok {
		m.lock.RUnlock()
		return ct
	}
	m.lock.RUnlock()
	m.lock.Lock()
	defer m.lock.Unlock()
	if ct, ok := m.classes[class]; ok {
		return ct
	}
	m.classes[class] = NewMapClassTranslator()
	return m.classes[class]
}

// Get returns the original identifier mapped to the given id in the given
// class.
func (m *MapTranslator) Get(class string, id uint64) (string, error) {
	orig, err := m.getClassTranslator(class).Get(id)
	if err != nil {
		return "", errors.Wrapf(err, "class '%v', id %v", class, id)
	}
	return orig, nil
}

// GetID returns the integer id associated with the given original identifier
// in the given class. It allocates the next id if the identifier has not been
// seen before.
func (m *MapTranslator) GetID(class string, orig string) (id uint64, err error) {
	return m.getClassTranslator(class).GetID(orig)
}

// MapClassTranslator is an in-memory implementation of ClassTranslator using
// sync.Map and a slice.
type MapClassTranslator struct {
	m sync.Map

	n *Nexter

	l sync.RWMutex
	s []string
}

// NewMapClassTranslator creates a new MapClassTranslator.
func NewMapClassTranslator() *MapClassTranslator {
	return &MapClassTranslator{
		n: NewNexter(),
		s: make([]string, 0),
	}
}

// Get returns the original identifier mapped to the given id.
func (m *MapClassTranslator) Get(id uint64) (string, error) {
	m.l.RLock()
	defer m.l.RUnlock()
	if id == 0 || uint64(len(m.s)) < id {
		return "", errors.New("requested unknown id in MapClassTranslator")
	}
	return m.s[id-1], nil
}

// GetID returns the integer id associated with the given original
// identifier, allocating the next id on first sight. Repeated calls with the
// same identifier always return the same id.
func (m *MapClassTranslator) GetID(orig string) (id uint64, err error) {
	if idv, ok := m.m.Load(orig); ok {
		if id, ok = idv.(uint64); !ok {
			return 0, errors.Errorf("got non uint64 value back from MapClassTranslator: %v", idv)
		}
		return id, nil
	}
	m.l.Lock()
	if idv, ok := m.m.Load(orig); ok {
		m.l.Unlock()
		if id, ok = idv.(uint64); !ok {
			return 0, errors.Errorf("got non uint64 value back from MapClassTranslator: %v", idv)
		}
		return id, nil
	}
	nextid := m.n.Next()
	m.s = append(m.s, orig)
	if uint64(len(m.s)) != nextid {
		panic(errors.Errorf("unexpected length of slice, nextid: %d, len: %d", nextid, len(m.s)))
	}
	m.m.Store(orig, nextid)
	m.l.Unlock()
	return nextid, nil
}
