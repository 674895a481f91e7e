package desk

// CheapestOrder returns the id of the lowest-priced open order. ok is false
// when no order has a nonzero amount. Ties go to the lowest id because the
// scan compares with strict less-than against the running best.
func (d *Desk) CheapestOrder() (id uint64, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cheapestLocked()
}

func (d *Desk) cheapestLocked() (uint64, bool) {
	var (
		best  uint64
		found bool
	)
	for i := range d.orders {
		if !d.orders[i].Open() {
			continue
		}
		if !found || d.orders[i].Price < d.orders[best].Price {
			best = uint64(i)
			found = true
		}
	}
	return best, found
}

// OpenOrders returns the ids of all open orders in ascending order.
func (d *Desk) OpenOrders() []uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	ids := make([]uint64, 0, len(d.orders))
	for i := range d.orders {
		if d.orders[i].Open() {
			ids = append(ids, uint64(i))
		}
	}
	return ids
}
