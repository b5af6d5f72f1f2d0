package stream

import (
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"

	"portfoliotracker/src/model"
)

// Event is pushed to subscribers whenever a position is recomputed.
type Event struct {
	PortfolioID int64                  `json:"portfolio_id,string"`
	AssetID     string                 `json:"asset_id"`
	Snapshot    model.PositionSnapshot `json:"snapshot"`
	At          time.Time              `json:"at"`
}

// Hub fans snapshot events out to the subscribers of each portfolio.
// Publishing never blocks: a subscriber whose buffer is full misses the event.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int64]map[*Subscription]struct{}
	buffer int
}

type Subscription struct {
	C           <-chan Event
	ch          chan Event
	portfolioID int64
	hub         *Hub
	once        sync.Once
}

func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{subs: make(map[int64]map[*Subscription]struct{}), buffer: buffer}
}

func (h *Hub) Subscribe(portfolioID int64) *Subscription {
	ch := make(chan Event, h.buffer)
	sub := &Subscription{C: ch, ch: ch, portfolioID: portfolioID, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[portfolioID] == nil {
		h.subs[portfolioID] = make(map[*Subscription]struct{})
	}
	h.subs[portfolioID][sub] = struct{}{}
	return sub
}

// Close unsubscribes and closes C. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		defer h.mu.Unlock()

		if set, ok := h.subs[s.portfolioID]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(h.subs, s.portfolioID)
			}
		}
		close(s.ch)
	})
}

// Publish implements ledger.Publisher.
func (h *Hub) Publish(portfolioID int64, assetID string, snapshot model.PositionSnapshot) {
	h.Deliver(Event{
		PortfolioID: portfolioID,
		AssetID:     assetID,
		Snapshot:    snapshot,
		At:          time.Now().UTC(),
	})
}

// Deliver hands an event to the local subscribers of its portfolio.
func (h *Hub) Deliver(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[event.PortfolioID] {
		select {
		case sub.ch <- event:
		default:
			logger.WithFields(logger.Fields{
				"component":    "stream.Hub",
				"portfolio_id": event.PortfolioID,
			}).Warn("Subscriber buffer full, dropping snapshot event")
		}
	}
}

// Subscribers reports the number of open subscriptions of a portfolio.
func (h *Hub) Subscribers(portfolioID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[portfolioID])
}
