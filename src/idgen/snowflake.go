package idgen

import (
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"strconv"
	"sync/atomic"
	"time"
)

// Layout of a generated id (63 usable bits, sign bit always zero):
//
//	| 41 bits: ms since Epoch | 10 bits: node id | 12 bits: sequence |
const (
	// Epoch is 2025-01-01 00:00:00 UTC in unix milliseconds.
	Epoch int64 = 1735689600000

	TimestampBits = 41
	NodeIDBits    = 10
	SequenceBits  = 12

	MaxNodeID    int64 = (1 << NodeIDBits) - 1
	MaxSequence  int64 = (1 << SequenceBits) - 1
	MaxTimestamp int64 = (1 << TimestampBits) - 1

	nodeIDShift    = SequenceBits
	timestampShift = NodeIDBits + SequenceBits
)

var (
	ErrClockMovedBackwards = errors.New("clock moved backwards, refusing to generate id")
	ErrClockBeforeEpoch    = errors.New("clock is before the id epoch")
	ErrTimestampOverflow   = errors.New("timestamp does not fit in 41 bits")
)

// ClockRewindError is returned when the clock reads earlier than the last
// timestamp an id was issued for.
type ClockRewindError struct {
	LastMillis int64
	NowMillis  int64
}

func (e *ClockRewindError) Error() string {
	return fmt.Sprintf("%s: last=%d now=%d (%dms behind)",
		ErrClockMovedBackwards, e.LastMillis, e.NowMillis, e.LastMillis-e.NowMillis)
}

func (e *ClockRewindError) Is(target error) bool {
	return target == ErrClockMovedBackwards
}

// Clock returns the current unix time in milliseconds.
type Clock func() int64

func SystemClock() int64 {
	return time.Now().UnixMilli()
}

// Generator hands out unique, time ordered 63-bit ids.
//
// The last issued (timestamp, sequence) pair is packed into a single word and
// advanced with compare-and-swap, so concurrent callers never observe the
// same pair and never wait on a lock.
type Generator struct {
	nodeID int64
	clock  Clock

	// state = (ms since Epoch) << SequenceBits | sequence
	state atomic.Int64
}

// New builds a generator from the environment. IDGEN_NODE_ID pins the node
// id, otherwise one is derived from the process identity.
func New() (*Generator, error) {
	cfg := GetConfig()
	nodeID := int64(cfg.NodeID)
	if nodeID < 0 {
		nodeID = DeriveNodeID()
	}
	return NewWithClock(nodeID, SystemClock)
}

// NewWithClock builds a generator for an explicit node id and clock.
func NewWithClock(nodeID int64, clock Clock) (*Generator, error) {
	if nodeID < 0 || nodeID > MaxNodeID {
		return nil, fmt.Errorf("node id %d out of range [0, %d]", nodeID, MaxNodeID)
	}
	if clock == nil {
		clock = SystemClock
	}
	return &Generator{nodeID: nodeID, clock: clock}, nil
}

// NodeID returns the node component stamped into every id.
func (g *Generator) NodeID() int64 {
	return g.nodeID
}

// Generate returns the next id. It fails without issuing anything when the
// clock reads earlier than the last issued timestamp.
func (g *Generator) Generate() (int64, error) {
	for {
		// state is loaded before the clock is read: any id issued after this
		// load carries a timestamp the clock had already reached, so a
		// forward moving clock always reads now >= last.
		cur := g.state.Load()
		last := cur >> SequenceBits
		seq := cur & MaxSequence

		now, err := g.tick()
		if err != nil {
			return 0, err
		}

		var next int64
		switch {
		case now < last:
			return 0, &ClockRewindError{LastMillis: last + Epoch, NowMillis: now + Epoch}
		case now == last:
			if seq < MaxSequence {
				next = cur + 1
				break
			}
			// sequence exhausted for this millisecond
			now, err = g.waitNextMillis(last)
			if err != nil {
				return 0, err
			}
			next = now << SequenceBits
		default:
			next = now << SequenceBits
		}

		if g.state.CompareAndSwap(cur, next) {
			return g.compose(next), nil
		}
	}
}

// tick reads the clock relative to Epoch.
func (g *Generator) tick() (int64, error) {
	now := g.clock()
	if now < Epoch {
		return 0, fmt.Errorf("%w: %d", ErrClockBeforeEpoch, now)
	}
	rel := now - Epoch
	if rel > MaxTimestamp {
		return 0, fmt.Errorf("%w: %d", ErrTimestampOverflow, now)
	}
	return rel, nil
}

// waitNextMillis spins until the clock passes last. A clock that steps
// backwards meanwhile fails the call instead of stalling it.
func (g *Generator) waitNextMillis(last int64) (int64, error) {
	for {
		now, err := g.tick()
		if err != nil {
			return 0, err
		}
		if now < last {
			return 0, &ClockRewindError{LastMillis: last + Epoch, NowMillis: now + Epoch}
		}
		if now > last {
			return now, nil
		}
	}
}

func (g *Generator) compose(state int64) int64 {
	ts := state >> SequenceBits
	seq := state & MaxSequence
	return ts<<timestampShift | g.nodeID<<nodeIDShift | seq
}

// Parts is a decoded id.
type Parts struct {
	Time     time.Time
	NodeID   int64
	Sequence int64
}

// Decompose splits an id back into its components.
func Decompose(id int64) Parts {
	return Parts{
		Time:     time.UnixMilli((id >> timestampShift) + Epoch).UTC(),
		NodeID:   (id >> nodeIDShift) & MaxNodeID,
		Sequence: id & MaxSequence,
	}
}

// DeriveNodeID hashes the pid, hostname and current time into a node id.
// Collisions between processes are possible but unlikely.
func DeriveNodeID() int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strconv.Itoa(os.Getpid())))
	if hostname, err := os.Hostname(); err == nil {
		_, _ = h.Write([]byte(hostname))
	}
	if hostname := os.Getenv("HOSTNAME"); hostname != "" {
		_, _ = h.Write([]byte(hostname))
	}
	_, _ = h.Write([]byte(strconv.FormatInt(time.Now().UnixNano(), 10)))
	return int64(h.Sum64() % uint64(MaxNodeID+1))
}
