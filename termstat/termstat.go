// Package termstat provides a bdk.Statter which periodically writes the
// collected counts to the given writer. It is meant for watching long
// extraction runs from the terminal in lieu of a real metrics collector.
package termstat

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Collector collects stats and prints them periodically.
type Collector struct {
	lock    sync.Mutex
	indexes map[string]int
	names   []string
	stats   []int64
	changed bool
	out     io.Writer
}

// NewCollector initializes and returns a new Collector writing to out every
// couple of seconds for as long as the process runs.
func NewCollector(out io.Writer) *Collector {
	ts := &Collector{
		indexes: make(map[string]int),
		out:     out,
	}
	go func() {
		tick := time.NewTicker(time.Second * 2)
		for ; ; <-tick.C {
			ts.write()
		}
	}()
	return ts
}

// Count adds value to the named stat. Rate and tags are accepted for
// interface compatibility and ignored.
func (t *Collector) Count(name string, value int64, rate float64, tags ...string) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.changed = true
	idx, ok := t.indexes[name]
	if !ok {
		idx = len(t.names)
		t.indexes[name] = idx
		t.names = append(t.names, name)
		t.stats = append(t.stats, 0)
	}
	t.stats[idx] += value
}

// Gauge sets the named stat to value.
func (t *Collector) Gauge(name string, value float64, rate float64, tags ...string) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.changed = true
	idx, ok := t.indexes[name]
	if !ok {
		idx = len(t.names)
		t.indexes[name] = idx
		t.names = append(t.names, name)
		t.stats = append(t.stats, 0)
	}
	t.stats[idx] = int64(value)
}

func (t *Collector) write() {
	t.lock.Lock()
	defer t.lock.Unlock()
	if !t.changed {
		return
	}
	t.changed = false
	for i, name := range t.names {
		fmt.Fprintf(t.out, "%s: %d  ", name, t.stats[i])
	}
	fmt.Fprintln(t.out)
}
