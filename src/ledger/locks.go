package ledger

import "sync"

type pairKey struct {
	portfolioID int64
	assetID     string
}

type pairLock struct {
	mu   sync.Mutex
	refs int
}

// PairLocks serializes work on the same (portfolio, asset) pair inside one
// process. Entries are dropped as soon as nobody holds or waits for them.
type PairLocks struct {
	mu    sync.Mutex
	locks map[pairKey]*pairLock
}

func NewPairLocks() *PairLocks {
	return &PairLocks{locks: make(map[pairKey]*pairLock)}
}

// Lock blocks until the pair is free and returns the function releasing it.
func (p *PairLocks) Lock(portfolioID int64, assetID string) func() {
	key := pairKey{portfolioID: portfolioID, assetID: assetID}

	p.mu.Lock()
	l, ok := p.locks[key]
	if !ok {
		l = &pairLock{}
		p.locks[key] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()

			p.mu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(p.locks, key)
			}
			p.mu.Unlock()
		})
	}
}

// Len reports how many pairs currently have holders or waiters.
func (p *PairLocks) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.locks)
}
