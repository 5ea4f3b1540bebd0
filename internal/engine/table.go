package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"firestige.xyz/otusdpi/internal/core"
)

// flowTable is a sharded map of flows. A flow's shard is chosen by the hash
// of its key so lookups for unrelated flows do not contend.
type flowTable struct {
	shards   []*flowShard
	maxFlows int64
	count    atomic.Int64
}

type flowShard struct {
	mu    sync.Mutex
	flows map[FlowKey]*Flow
}

func newFlowTable(shards, maxFlows int) *flowTable {
	if shards <= 0 {
		shards = 1
	}
	t := &flowTable{
		shards:   make([]*flowShard, shards),
		maxFlows: int64(maxFlows),
	}
	for i := range t.shards {
		t.shards[i] = &flowShard{flows: make(map[FlowKey]*Flow)}
	}
	return t
}

func (t *flowTable) shard(key FlowKey) *flowShard {
	return t.shards[key.Hash()%uint64(len(t.shards))]
}

// getOrCreate returns the flow for key, creating it from pkt when absent.
// created reports whether a new flow was inserted. A full table returns
// core.ErrFlowTableFull and leaves existing flows untouched.
func (t *flowTable) getOrCreate(key FlowKey, pkt *core.DecodedPacket) (flow *Flow, created bool, err error) {
	s := t.shard(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if f, ok := s.flows[key]; ok {
		return f, false, nil
	}
	if t.maxFlows > 0 && t.count.Load() >= t.maxFlows {
		return nil, false, core.ErrFlowTableFull
	}

	f := newFlow(key, pkt)
	s.flows[key] = f
	t.count.Add(1)
	return f, true, nil
}

// get returns the flow for key, if present.
func (t *flowTable) get(key FlowKey) (*Flow, bool) {
	s := t.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flows[key]
	return f, ok
}

// expire removes flows whose last packet is older than cutoff and returns them.
func (t *flowTable) expire(cutoff time.Time) []*Flow {
	var removed []*Flow
	for _, s := range t.shards {
		s.mu.Lock()
		for k, f := range s.flows {
			f.mu.Lock()
			idle := f.lastSeen.Before(cutoff)
			f.mu.Unlock()
			if idle {
				delete(s.flows, k)
				removed = append(removed, f)
			}
		}
		s.mu.Unlock()
	}
	t.count.Add(-int64(len(removed)))
	return removed
}

// snapshot returns all flows currently held.
func (t *flowTable) snapshot() []*Flow {
	out := make([]*Flow, 0, t.count.Load())
	for _, s := range t.shards {
		s.mu.Lock()
		for _, f := range s.flows {
			out = append(out, f)
		}
		s.mu.Unlock()
	}
	return out
}

func (t *flowTable) len() int {
	return int(t.count.Load())
}
