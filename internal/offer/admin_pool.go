package offer

import "sync/atomic"

// RoundRobinAdminPool distributes automated opportunities over a fixed,
// configured set of admins.
type RoundRobinAdminPool struct {
	adminIDs []int64
	next     atomic.Uint64
}

// NewRoundRobinAdminPool creates a pool over the given admin ids.
// It panics on an empty pool: automation cannot assign nobody.
func NewRoundRobinAdminPool(adminIDs []int64) *RoundRobinAdminPool {
	if len(adminIDs) == 0 {
		panic("admin pool must not be empty")
	}
	ids := make([]int64, len(adminIDs))
	copy(ids, adminIDs)
	return &RoundRobinAdminPool{adminIDs: ids}
}

// Next returns the next admin in rotation
func (p *RoundRobinAdminPool) Next() int64 {
	n := p.next.Add(1) - 1
	return p.adminIDs[n%uint64(len(p.adminIDs))]
}
