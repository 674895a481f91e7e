package desk

import "github.com/ethereum/go-ethereum/common"

// Order is a standing offer to sell Amount token base units at Price.
// Price is denominated in smallest-payment-unit x divisor per token base unit.
// An order with Amount == 0 is closed but keeps its slot until it is
// explicitly removed, so ids stay stable except across removals.
type Order struct {
	Price  uint64 `json:"price"`
	Amount uint64 `json:"amount"`
}

// Open reports whether the order still has tokens for sale.
func (o Order) Open() bool { return o.Amount != 0 }

// TokenLedger is the external fungible-token collaborator. The desk trusts it
// not to call back into the desk during any of these calls (all desk methods
// hold the desk mutex while invoking it, so a reentrant collaborator would
// deadlock rather than corrupt state).
type TokenLedger interface {
	// TransferFrom moves amount from `from` to `to` on the caller's allowance.
	TransferFrom(from, to common.Address, amount uint64) error
	// Transfer moves amount out of the caller's own account to `to`.
	Transfer(to common.Address, amount uint64) error
	BalanceOf(acct common.Address) uint64
	Allowance(owner, spender common.Address) uint64
}

// Purchase is the observable notification emitted after a successful buy.
// It is fire-and-forget: delivery is not awaited and cannot fail the buy.
type Purchase struct {
	Buyer        common.Address `json:"buyer"`
	TokensBought uint64         `json:"tokensBought"`
}

// Notifier receives purchase notifications.
type Notifier interface {
	NotifyPurchase(Purchase)
}

// Snapshotter persists the order book after each committed mutation.
// A snapshot failure is logged, never rolled back: within a process the
// in-memory book is authoritative.
type Snapshotter interface {
	SaveOrders(orders []Order) error
}
