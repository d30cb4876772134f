package bdk

import (
	"sync"
	"testing"
)

func TestNexter(t *testing.T) {
	n := NewNexter()
	MustBe(t, n.Last(), uint64(0), "before first Next")
	MustBe(t, n.Next(), uint64(1))
	MustBe(t, n.Next(), uint64(2))
	MustBe(t, n.Last(), uint64(2))
}

func TestNexterConcurrent(t *testing.T) {
	n := NewNexter()
	wg := sync.WaitGroup{}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				n.Next()
			}
		}()
	}
	wg.Wait()
	MustBe(t, n.Last(), uint64(8000))
}
