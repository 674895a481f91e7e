package desk

import (
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"
)

// undo records one order's amount before the matching loop touched it.
type undo struct {
	id   uint64
	prev uint64
}

// Buy spends budget payment units across the book in strict price priority,
// cheapest order first, and returns the number of token base units bought.
// maxPrice is an inclusive ceiling: the loop stops at the first cheapest
// order priced above it. Orders are consumed fully while their full value
// fits the remaining budget; the last order may be partially filled, in which
// case any sub-token-unit remainder of the budget is spent without being
// converted (truncating fixed-point policy).
//
// The whole call is atomic: every order mutation, the payment debit, the
// token payout, and the sweep of the desk's payment balance to the seller
// either all happen or none do. The buyer is debited during settlement, only
// for what actually matched: an aborted call leaves the payment ledger
// untouched, allowance included, and unspent budget never leaves the buyer.
func (d *Desk) Buy(buyer common.Address, maxPrice, budget uint64) (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	remaining := budget
	var tokensBought uint64
	var journal []undo

	abort := func(cause error) (uint64, error) {
		for i := len(journal) - 1; i >= 0; i-- {
			d.orders[journal[i].id].Amount = journal[i].prev
		}
		d.metrics.RecordAbort()
		return 0, cause
	}

	for {
		id, ok := d.cheapestLocked()
		if remaining == 0 || !ok || d.orders[id].Price > maxPrice {
			break
		}
		o := &d.orders[id]

		cost, ok := mulU64(o.Price, o.Amount)
		if !ok {
			return abort(fmt.Errorf("%w: order %d price %d * amount %d", ErrOverflow, id, o.Price, o.Amount))
		}
		fullValue := cost / d.divisor

		if fullValue <= remaining {
			// Full fill: the order closes but keeps its slot.
			bought, ok := addU64(tokensBought, o.Amount)
			if !ok {
				return abort(fmt.Errorf("%w: tokens bought %d + %d", ErrOverflow, tokensBought, o.Amount))
			}
			journal = append(journal, undo{id: id, prev: o.Amount})
			tokensBought = bought
			remaining -= fullValue
			o.Amount = 0
			continue
		}

		// Partial fill: convert whatever the remaining budget affords and
		// zero the budget, discarding the sub-unit remainder.
		scaled, ok := mulU64(remaining, d.divisor)
		if !ok {
			return abort(fmt.Errorf("%w: remaining %d * divisor %d", ErrOverflow, remaining, d.divisor))
		}
		amountBought := scaled / o.Price
		bought, ok := addU64(tokensBought, amountBought)
		if !ok {
			return abort(fmt.Errorf("%w: tokens bought %d + %d", ErrOverflow, tokensBought, amountBought))
		}
		journal = append(journal, undo{id: id, prev: o.Amount})
		tokensBought = bought
		o.Amount -= amountBought
		remaining = 0
		break
	}

	// Settlement. Pull exactly the matched value from the buyer; this is the
	// one transfer that can legitimately fail (insufficient balance or
	// allowance), and it happens before anything else leaves the desk.
	spent := budget - remaining
	if err := d.bank.TransferFrom(buyer, d.account, spent); err != nil {
		return abort(fmt.Errorf("%w: debit %d payment from buyer: %v", ErrTransferFailed, spent, err))
	}

	if err := d.token.Transfer(buyer, tokensBought); err != nil {
		// A payout failure means a ledger bug: custody always covers the
		// book. Hand the debit back before rolling the matching back.
		if rerr := d.bank.Transfer(buyer, spent); rerr != nil {
			d.log.Errorw("abort_refund_failed", "buyer", buyer.Hex(), "spent", spent, "err", rerr)
		}
		return abort(fmt.Errorf("%w: pay out %d tokens to buyer: %v", ErrTransferFailed, tokensBought, err))
	}

	if d.notify != nil {
		d.notify.NotifyPurchase(Purchase{Buyer: buyer, TokensBought: tokensBought})
	}

	// Sweep everything the desk holds in payment currency to the seller.
	// This is a sweep, not a delta: the desk never retains payment between
	// completed operations, so the balance is exactly this sale's proceeds.
	if proceeds := d.bank.BalanceOf(d.account); proceeds > 0 {
		if err := d.bank.Transfer(d.seller, proceeds); err != nil {
			d.log.Errorw("sweep_failed", "proceeds", proceeds, "err", err)
		} else {
			d.metrics.RecordSweep(proceeds)
		}
	}

	d.metrics.RecordPurchase(tokensBought)
	d.persist("buy")
	d.log.Infow("purchase",
		"buyer", buyer.Hex(),
		"budget", budget,
		"max_price", maxPrice,
		"tokens_bought", tokensBought,
		"spent", spent,
	)
	return tokensBought, nil
}

// BuyAny is the default purchase with no price ceiling: payment sent with no
// specific operation selected buys at any price.
func (d *Desk) BuyAny(buyer common.Address, budget uint64) (uint64, error) {
	return d.Buy(buyer, math.MaxUint64, budget)
}
