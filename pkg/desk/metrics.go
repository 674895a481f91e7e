package desk

import (
	"sync/atomic"
	"time"
)

// Metrics counts desk activity with atomics so reads never contend with the
// desk mutex.
type Metrics struct {
	purchases    atomic.Uint64
	tokensSold   atomic.Uint64
	paymentSwept atomic.Uint64
	ordersAdded  atomic.Uint64
	tokensListed atomic.Uint64
	ordersGone   atomic.Uint64
	aborts       atomic.Uint64
}

// NewMetrics returns a zeroed metrics set.
func NewMetrics() *Metrics { return &Metrics{} }

// RecordPurchase records a completed buy.
func (m *Metrics) RecordPurchase(tokens uint64) {
	m.purchases.Add(1)
	m.tokensSold.Add(tokens)
}

// RecordSweep records payment proceeds swept to the seller.
func (m *Metrics) RecordSweep(amount uint64) { m.paymentSwept.Add(amount) }

// RecordOrderAdded records a new listing.
func (m *Metrics) RecordOrderAdded(amount uint64) {
	m.ordersAdded.Add(1)
	m.tokensListed.Add(amount)
}

// RecordOrderRemoved records an explicit removal.
func (m *Metrics) RecordOrderRemoved() { m.ordersGone.Add(1) }

// RecordAbort records an operation that failed and rolled back.
func (m *Metrics) RecordAbort() { m.aborts.Add(1) }

// Snapshot is a point-in-time view of all counters.
type Snapshot struct {
	Purchases     uint64    `json:"purchases"`
	TokensSold    uint64    `json:"tokensSold"`
	PaymentSwept  uint64    `json:"paymentSwept"`
	OrdersAdded   uint64    `json:"ordersAdded"`
	TokensListed  uint64    `json:"tokensListed"`
	OrdersRemoved uint64    `json:"ordersRemoved"`
	Aborts        uint64    `json:"aborts"`
	Timestamp     time.Time `json:"timestamp"`
}

// Snapshot returns the current counters.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Purchases:     m.purchases.Load(),
		TokensSold:    m.tokensSold.Load(),
		PaymentSwept:  m.paymentSwept.Load(),
		OrdersAdded:   m.ordersAdded.Load(),
		TokensListed:  m.tokensListed.Load(),
		OrdersRemoved: m.ordersGone.Load(),
		Aborts:        m.aborts.Load(),
		Timestamp:     time.Now(),
	}
}
