package bdk

import (
	"sync/atomic"
)

// INexter is the interface for threadsafe monotonic id generation.
type INexter interface {
	Next() uint64
	Last() uint64
}

// Nexter is a threadsafe monotonic unique id generator. The first id handed
// out is 1 - id 0 is reserved to mean "unassigned".
type Nexter struct {
	id *uint64
}

// NewNexter creates a new id generator.
func NewNexter() *Nexter {
	var id uint64
	return &Nexter{
		id: &id,
	}
}

// Next generates a new id and returns it.
func (n *Nexter) Next() (nextID uint64) {
	return atomic.AddUint64(n.id, 1)
}

// Last returns the most recently generated id, or 0 if none have been
// generated.
func (n *Nexter) Last() (lastID uint64) {
	return atomic.LoadUint64(n.id)
}
