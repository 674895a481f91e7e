package desk

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Desk is a single-seller sale desk for one fungible token. The seller lists
// (price, amount) orders; any buyer spends a payment budget across them in
// strict price priority. All operations on one desk are serialized behind a
// single mutex: the matching loop needs a consistent view of the book across
// its repeated cheapest-order scans within one call.
//
// Invariant: the sum of Amount over all orders equals the token balance the
// desk custodies, except inside an in-flight operation.
type Desk struct {
	// engine.go locks mu for Buy; all admin ops below lock it too.
	mu sync.Mutex

	seller    common.Address
	account   common.Address // the desk's own ledger account
	token     TokenLedger    // the token being sold
	bank      TokenLedger    // the payment currency
	divisor   uint64
	maxOrders int

	orders []Order

	snap    Snapshotter
	notify  Notifier
	log     *zap.SugaredLogger
	metrics *Metrics
}

// Config carries the immutable desk parameters fixed at construction.
type Config struct {
	Seller  common.Address
	Account common.Address
	Token   TokenLedger
	Bank    TokenLedger
	// Divisor is the fixed-point scale relating Price to payment per token
	// base unit. Must be positive.
	Divisor uint64
	// MaxOrders caps the book size; the cap bounds the O(n^2) worst-case work
	// of a single buy. Must be positive.
	MaxOrders int

	Snapshot Snapshotter // optional
	Notifier Notifier    // optional
	Logger   *zap.SugaredLogger
	Metrics  *Metrics // optional
}

// New builds a desk. Divisor and MaxOrders must be positive.
func New(cfg Config) (*Desk, error) {
	if cfg.Divisor == 0 {
		return nil, fmt.Errorf("divisor must be positive")
	}
	if cfg.MaxOrders <= 0 {
		return nil, fmt.Errorf("max orders must be positive")
	}
	if cfg.Token == nil || cfg.Bank == nil {
		return nil, fmt.Errorf("token and bank ledgers are required")
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	m := cfg.Metrics
	if m == nil {
		m = NewMetrics()
	}
	return &Desk{
		seller:    cfg.Seller,
		account:   cfg.Account,
		token:     cfg.Token,
		bank:      cfg.Bank,
		divisor:   cfg.Divisor,
		maxOrders: cfg.MaxOrders,
		snap:      cfg.Snapshot,
		notify:    cfg.Notifier,
		log:       log,
		metrics:   m,
	}, nil
}

// Restore replaces the book with a previously persisted snapshot. Called once
// at startup, before the desk is shared.
//
// The book and the token ledger persist in separate databases whose writes
// are not atomic with each other, so a crash between them can leave the
// snapshot and custody disagreeing. Restore reconciles the two and logs a
// warning on mismatch rather than failing startup.
func (d *Desk) Restore(orders []Order) error {
	if len(orders) > d.maxOrders {
		return fmt.Errorf("snapshot has %d orders, cap is %d", len(orders), d.maxOrders)
	}
	d.orders = append(d.orders[:0], orders...)

	var sum uint64
	ok := true
	for i := range d.orders {
		if sum, ok = addU64(sum, d.orders[i].Amount); !ok {
			break
		}
	}
	custody := d.token.BalanceOf(d.account)
	if !ok || sum != custody {
		d.log.Warnw("custody_mismatch", "book_total", sum, "custody", custody, "orders", len(d.orders))
	}
	return nil
}

// Seller returns the fixed seller principal.
func (d *Desk) Seller() common.Address { return d.seller }

// Account returns the desk's own custody account.
func (d *Desk) Account() common.Address { return d.account }

// Token returns the token ledger collaborator.
func (d *Desk) Token() TokenLedger { return d.token }

// Divisor returns the fixed-point price scale.
func (d *Desk) Divisor() uint64 { return d.divisor }

// MaxOrders returns the book capacity.
func (d *Desk) MaxOrders() int { return d.maxOrders }

// Metrics returns the desk's counters.
func (d *Desk) Metrics() *Metrics { return d.metrics }

// Order returns the (price, amount) pair at id.
func (d *Desk) Order(id uint64) (Order, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id >= uint64(len(d.orders)) {
		return Order{}, ErrNoSuchOrder
	}
	return d.orders[id], nil
}

// AddOrder lists amount token base units at price and returns the new order
// id. The tokens move from the seller into desk custody; a failed pull aborts
// with nothing appended.
func (d *Desk) AddOrder(caller common.Address, price, amount uint64) (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if caller != d.seller {
		return 0, ErrNotSeller
	}
	if len(d.orders) >= d.maxOrders {
		return 0, ErrBookFull
	}
	if err := d.token.TransferFrom(d.seller, d.account, amount); err != nil {
		return 0, fmt.Errorf("%w: pull %d tokens from seller: %v", ErrTransferFailed, amount, err)
	}

	id := uint64(len(d.orders))
	d.orders = append(d.orders, Order{Price: price, Amount: amount})
	d.metrics.RecordOrderAdded(amount)
	d.persist("add_order")
	d.log.Infow("order_added", "id", id, "price", price, "amount", amount)
	return id, nil
}

// IncreaseAmount deposits amount more token units under an existing order.
// The overflow check runs before the ledger pull so a failure of either
// leaves the book untouched.
func (d *Desk) IncreaseAmount(caller common.Address, id, amount uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if caller != d.seller {
		return ErrNotSeller
	}
	if id >= uint64(len(d.orders)) {
		return ErrNoSuchOrder
	}
	next, ok := addU64(d.orders[id].Amount, amount)
	if !ok {
		return fmt.Errorf("%w: order %d amount %d + %d", ErrOverflow, id, d.orders[id].Amount, amount)
	}
	if err := d.token.TransferFrom(d.seller, d.account, amount); err != nil {
		return fmt.Errorf("%w: pull %d tokens from seller: %v", ErrTransferFailed, amount, err)
	}

	d.orders[id].Amount = next
	d.persist("increase_amount")
	d.log.Infow("order_increased", "id", id, "amount", amount, "now", next)
	return nil
}

// DecreaseAmount returns up to amount token units from an order back to the
// seller. Asking for more than the order holds is not an error: the release
// is clamped to the remaining amount.
func (d *Desk) DecreaseAmount(caller common.Address, id, amount uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if caller != d.seller {
		return ErrNotSeller
	}
	if id >= uint64(len(d.orders)) {
		return ErrNoSuchOrder
	}
	released := amount
	if d.orders[id].Amount < released {
		released = d.orders[id].Amount
	}
	if err := d.token.Transfer(d.seller, released); err != nil {
		return fmt.Errorf("%w: release %d tokens to seller: %v", ErrTransferFailed, released, err)
	}

	d.orders[id].Amount -= released
	d.persist("decrease_amount")
	d.log.Infow("order_decreased", "id", id, "released", released, "now", d.orders[id].Amount)
	return nil
}

// RemoveOrder refunds an order's full remaining amount to the seller and
// destroys its slot. Removal is swap-delete: the last order's contents move
// into the freed slot and the book shrinks by one, so the last order takes
// over the removed id. Ids are not stable across removals.
func (d *Desk) RemoveOrder(caller common.Address, id uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if caller != d.seller {
		return ErrNotSeller
	}
	if id >= uint64(len(d.orders)) {
		return ErrNoSuchOrder
	}
	refund := d.orders[id].Amount
	if err := d.token.Transfer(d.seller, refund); err != nil {
		return fmt.Errorf("%w: refund %d tokens to seller: %v", ErrTransferFailed, refund, err)
	}

	last := len(d.orders) - 1
	d.orders[id] = d.orders[last]
	d.orders = d.orders[:last]
	d.metrics.RecordOrderRemoved()
	d.persist("remove_order")
	d.log.Infow("order_removed", "id", id, "refunded", refund, "len", len(d.orders))
	return nil
}

// persist snapshots the book after a committed mutation. Failures are logged
// and swallowed; the in-memory book stays authoritative.
func (d *Desk) persist(op string) {
	if d.snap == nil {
		return
	}
	if err := d.snap.SaveOrders(d.orders); err != nil {
		d.log.Errorw("snapshot_failed", "op", op, "err", err)
	}
}
