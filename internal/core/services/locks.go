package services

import (
	"hash/fnv"
	"sync"
)

// stripedLock sérialise les mutations d'un même post (load -> save)
// sans verrou global : les ids sont répartis sur un nombre fixe de mutex.
type stripedLock struct {
	stripes []sync.Mutex
}

func newStripedLock(n int) *stripedLock {
	if n <= 0 {
		n = 64
	}
	return &stripedLock{stripes: make([]sync.Mutex, n)}
}

func (l *stripedLock) Lock(key string) (unlock func()) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	m := &l.stripes[h.Sum32()%uint32(len(l.stripes))]
	m.Lock()
	return m.Unlock
}
