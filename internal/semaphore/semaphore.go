// Package semaphore provides a counting semaphore that, unlike sync.WaitGroup,
// tolerates Add being called concurrently with Wait without tripping the race
// detector. The webgraph segment merge step uses it to bound how many bucket
// merges run at once.
package semaphore

import (
	"sync"
)

type Semaphore struct {
	cond  *sync.Cond
	lock  sync.Mutex
	count int
}

func New() *Semaphore {
	s := &Semaphore{}
	s.cond = sync.NewCond(&s.lock)
	return s
}

func (sm *Semaphore) Reset() {
	sm.count = 0
	sm.cond.Broadcast()
}

func (sm *Semaphore) Add(i int) {
	sm.lock.Lock()
	defer sm.lock.Unlock()

	sm.count += i
	if sm.count <= 0 {
		sm.cond.Broadcast()
	}
}

func (sm *Semaphore) Done() {
	sm.Add(-1)
}

// Wait blocks until the net count returns to zero or below, i.e. until every
// outstanding Add has been matched by a Done.
func (sm *Semaphore) Wait() {
	sm.lock.Lock()
	defer sm.lock.Unlock()

	for sm.count > 0 {
		sm.cond.Wait()
	}
}
