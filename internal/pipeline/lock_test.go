package pipeline

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestPathLocks_SerializesSameKey(t *testing.T) {
	locks := newPathLocks()
	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("/a/photo.webp")
			n := atomic.AddInt32(&active, 1)
			for {
				m := atomic.LoadInt32(&maxActive)
				if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
					break
				}
			}
			atomic.AddInt32(&active, -1)
			unlock()
		}()
	}
	wg.Wait()
	if maxActive != 1 {
		t.Fatalf("expected at most one holder, saw %d", maxActive)
	}
	if locks.size() != 0 {
		t.Fatalf("expected lock table drained, %d left", locks.size())
	}
}

func TestPathLocks_IndependentKeys(t *testing.T) {
	locks := newPathLocks()
	unlockA := locks.Lock("a")
	done := make(chan struct{})
	go func() {
		unlock := locks.Lock("b")
		unlock()
		close(done)
	}()
	<-done
	unlockA()
}
