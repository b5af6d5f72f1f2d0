package ledger

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"portfoliotracker/src/model"
)

// memStore is an in-memory Store. InPairTx restores the previous state when
// fn fails.
type memStore struct {
	txMu sync.Mutex

	mu        sync.Mutex
	txs       map[int64]model.Transaction
	snapshots map[pairKey]model.PositionSnapshot

	insertCalls int
	updateCalls int
	failInsert  error
	failPersist error
}

func newMemStore() *memStore {
	return &memStore{
		txs:       make(map[int64]model.Transaction),
		snapshots: make(map[pairKey]model.PositionSnapshot),
	}
}

func (s *memStore) LoadAll(_ context.Context, portfolioID int64, assetID string) ([]model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Transaction
	for _, tx := range s.txs {
		if tx.PortfolioID == portfolioID && tx.AssetID == assetID {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) InsertBatch(_ context.Context, txs []model.Transaction) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.insertCalls++
	if s.failInsert != nil {
		return 0, s.failInsert
	}
	for _, tx := range txs {
		s.txs[tx.ID] = tx
	}
	return len(txs), nil
}

func (s *memStore) UpdateByID(_ context.Context, id int64, update model.TransactionUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.updateCalls++
	tx, ok := s.txs[id]
	if !ok {
		return ErrTransactionNotFound
	}
	update.Apply(&tx)
	s.txs[id] = tx
	return nil
}

func (s *memStore) PersistSnapshot(_ context.Context, portfolioID int64, assetID string, snapshot model.PositionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failPersist != nil {
		return s.failPersist
	}
	s.snapshots[pairKey{portfolioID: portfolioID, assetID: assetID}] = snapshot
	return nil
}

func (s *memStore) FindByID(_ context.Context, id int64) (*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.txs[id]
	if !ok {
		return nil, nil
	}
	return &tx, nil
}

func (s *memStore) InPairTx(_ context.Context, _ int64, _ string, fn func(Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	savedTxs := make(map[int64]model.Transaction, len(s.txs))
	for k, v := range s.txs {
		savedTxs[k] = v
	}
	savedSnapshots := make(map[pairKey]model.PositionSnapshot, len(s.snapshots))
	for k, v := range s.snapshots {
		savedSnapshots[k] = v
	}
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.txs = savedTxs
		s.snapshots = savedSnapshots
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *memStore) snapshot(portfolioID int64, assetID string) (model.PositionSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[pairKey{portfolioID: portfolioID, assetID: assetID}]
	return snap, ok
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.txs)
}

type seqIDs struct {
	next  atomic.Int64
	calls atomic.Int64
	err   error
}

func (g *seqIDs) Generate() (int64, error) {
	g.calls.Add(1)
	if g.err != nil {
		return 0, g.err
	}
	return g.next.Add(1), nil
}

type recordingPublisher struct {
	mu        sync.Mutex
	snapshots []model.PositionSnapshot
}

func (p *recordingPublisher) Publish(_ int64, _ string, snapshot model.PositionSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots = append(p.snapshots, snapshot)
}

func (p *recordingPublisher) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.snapshots)
}
