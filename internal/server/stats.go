package server

import (
	"sync"

	"github.com/puznanski/SIK-ticketserver/internal/booking"
)

// Stats is one published view of the server: the dispatcher's datagram
// counters plus the engine's aggregate state at that moment.
type Stats struct {
	Datagrams uint64 `json:"datagrams"`
	Dropped   uint64 `json:"dropped"`
	Rejected  uint64 `json:"rejected"`

	booking.Snapshot
}

// StatsBoard hands dispatcher-published snapshots to other goroutines.
// The dispatcher writes after every handled datagram; the ops HTTP
// handlers only ever read the latest copy, so the engine itself stays
// single-owner with no locks.
type StatsBoard struct {
	mu      sync.RWMutex
	current Stats
}

func NewStatsBoard() *StatsBoard {
	return &StatsBoard{}
}

func (b *StatsBoard) Publish(stats Stats) {
	b.mu.Lock()
	b.current = stats
	b.mu.Unlock()
}

func (b *StatsBoard) Current() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current
}
