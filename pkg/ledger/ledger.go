// Package ledger implements the fungible-token collaborator the desk settles
// against: balances and allowances keyed by address, optionally persisted to
// Pebble. One Ledger instance tracks one asset; the desk uses two, one for
// the token on sale and one for the payment currency.
package ledger

import (
	"errors"
	"fmt"
	"math/bits"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrInsufficientBalance is returned when a transfer exceeds the sender's
	// balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientAllowance is returned when TransferFrom exceeds what the
	// owner approved for the spender.
	ErrInsufficientAllowance = errors.New("insufficient allowance")

	// ErrBalanceOverflow is returned when a credit would overflow uint64.
	ErrBalanceOverflow = errors.New("balance overflow")
)

// Ledger is one asset's balance book. Thread-safe. Transfers are synchronous
// and never call back into their caller, which is the non-reentrancy contract
// the desk relies on.
type Ledger struct {
	mu         sync.RWMutex
	name       string
	balances   map[common.Address]uint64
	allowances map[common.Address]map[common.Address]uint64
	db         *pebble.DB // nil when in-memory
}

// NewInMemory creates a ledger with no persistence. Used in tests and as the
// devnet default when no data dir is configured.
func NewInMemory(name string) *Ledger {
	return &Ledger{
		name:       name,
		balances:   make(map[common.Address]uint64),
		allowances: make(map[common.Address]map[common.Address]uint64),
	}
}

// Open creates a Pebble-backed ledger at path and loads all persisted
// balances and allowances into memory.
func Open(name, path string) (*Ledger, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open ledger db at %s: %w", path, err)
	}
	l := NewInMemory(name)
	l.db = db
	if err := l.load(); err != nil {
		db.Close()
		return nil, fmt.Errorf("load ledger %s: %w", name, err)
	}
	return l, nil
}

// Close closes the backing database, if any.
func (l *Ledger) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Name returns the asset symbol this ledger tracks.
func (l *Ledger) Name() string { return l.name }

// BalanceOf returns acct's balance.
func (l *Ledger) BalanceOf(acct common.Address) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[acct]
}

// Allowance returns what owner has approved spender to move.
func (l *Ledger) Allowance(owner, spender common.Address) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.allowances[owner][spender]
}

// Mint credits amount to `to` out of thin air. Provisioning only.
func (l *Ledger) Mint(to common.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next, carry := bits.Add64(l.balances[to], amount, 0)
	if carry != 0 {
		return fmt.Errorf("%w: mint %d to %s", ErrBalanceOverflow, amount, to.Hex())
	}
	if err := l.write(entry{kBalance(to), encodeU64(next)}); err != nil {
		return err
	}
	l.balances[to] = next
	return nil
}

// Approve sets spender's allowance over owner's funds to exactly amount.
func (l *Ledger) Approve(owner, spender common.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.write(entry{kAllowance(owner, spender), encodeU64(amount)}); err != nil {
		return err
	}
	if l.allowances[owner] == nil {
		l.allowances[owner] = make(map[common.Address]uint64)
	}
	l.allowances[owner][spender] = amount
	return nil
}

// transfer moves amount from -> to. Zero-amount and self transfers succeed
// as no-ops. Extra entries join the same atomic batch, and the batch commits
// before any in-memory mutation so a storage failure cannot leave memory and
// disk disagreeing. Caller holds the write lock.
func (l *Ledger) transfer(from, to common.Address, amount uint64, extra ...entry) error {
	if amount == 0 {
		return l.write(extra...)
	}
	if l.balances[from] < amount {
		return fmt.Errorf("%w: %s has %d %s, needs %d", ErrInsufficientBalance, from.Hex(), l.balances[from], l.name, amount)
	}
	if from == to {
		return l.write(extra...)
	}
	next, carry := bits.Add64(l.balances[to], amount, 0)
	if carry != 0 {
		return fmt.Errorf("%w: credit %d to %s", ErrBalanceOverflow, amount, to.Hex())
	}
	fromNext := l.balances[from] - amount

	entries := append([]entry{
		{kBalance(from), encodeU64(fromNext)},
		{kBalance(to), encodeU64(next)},
	}, extra...)
	if err := l.write(entries...); err != nil {
		return err
	}
	l.balances[from] = fromNext
	l.balances[to] = next
	return nil
}

// Account binds the ledger to one holder, giving it the desk-facing transfer
// surface: Transfer spends the holder's own funds, TransferFrom spends the
// holder's allowance over someone else's.
type Account struct {
	l      *Ledger
	holder common.Address
}

// Account returns holder's bound view of the ledger.
func (l *Ledger) Account(holder common.Address) *Account {
	return &Account{l: l, holder: holder}
}

// Holder returns the bound address.
func (a *Account) Holder() common.Address { return a.holder }

// Transfer moves amount of the holder's own funds to `to`.
func (a *Account) Transfer(to common.Address, amount uint64) error {
	a.l.mu.Lock()
	defer a.l.mu.Unlock()
	return a.l.transfer(a.holder, to, amount)
}

// TransferFrom moves amount from `from` to `to`, consuming the holder's
// allowance granted by `from`. The balance moves and the allowance decrement
// commit in one batch.
func (a *Account) TransferFrom(from, to common.Address, amount uint64) error {
	a.l.mu.Lock()
	defer a.l.mu.Unlock()

	if amount == 0 {
		return nil
	}
	allowed := a.l.allowances[from][a.holder]
	if allowed < amount {
		return fmt.Errorf("%w: %s approved %d %s for %s, needs %d",
			ErrInsufficientAllowance, from.Hex(), allowed, a.l.name, a.holder.Hex(), amount)
	}
	remaining := allowed - amount
	if err := a.l.transfer(from, to, amount, entry{kAllowance(from, a.holder), encodeU64(remaining)}); err != nil {
		return err
	}
	if a.l.allowances[from] == nil {
		a.l.allowances[from] = make(map[common.Address]uint64)
	}
	a.l.allowances[from][a.holder] = remaining
	return nil
}

// BalanceOf returns acct's balance.
func (a *Account) BalanceOf(acct common.Address) uint64 { return a.l.BalanceOf(acct) }

// Allowance returns what owner approved for spender.
func (a *Account) Allowance(owner, spender common.Address) uint64 {
	return a.l.Allowance(owner, spender)
}
