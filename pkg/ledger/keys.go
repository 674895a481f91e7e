package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"
)

// keys: bal:<20-byte-addr> -> u64, alw:<20-byte-owner><20-byte-spender> -> u64
func kBalance(addr common.Address) []byte {
	return append([]byte("bal:"), addr[:]...)
}

func kAllowance(owner, spender common.Address) []byte {
	k := append([]byte("alw:"), owner[:]...)
	return append(k, spender[:]...)
}

func encodeU64(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

// entry is one pending key/value write.
type entry struct {
	key []byte
	val []byte
}

// write commits the given entries in one synced batch. No-op for in-memory
// ledgers. Caller holds the write lock and mutates memory only afterwards.
func (l *Ledger) write(entries ...entry) error {
	if l.db == nil || len(entries) == 0 {
		return nil
	}
	b := l.db.NewBatch()
	for _, e := range entries {
		if err := b.Set(e.key, e.val, nil); err != nil {
			b.Close()
			return fmt.Errorf("stage ledger write: %w", err)
		}
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit ledger write: %w", err)
	}
	return nil
}

// load reads every persisted balance and allowance into the in-memory maps.
func (l *Ledger) load() error {
	iter, err := l.db.NewIter(nil)
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()
		if len(iter.Value()) != 8 {
			continue
		}
		v := binary.BigEndian.Uint64(iter.Value())
		switch {
		case len(key) == 4+20 && string(key[:4]) == "bal:":
			var addr common.Address
			copy(addr[:], key[4:])
			l.balances[addr] = v
		case len(key) == 4+40 && string(key[:4]) == "alw:":
			var owner, spender common.Address
			copy(owner[:], key[4:24])
			copy(spender[:], key[24:])
			if l.allowances[owner] == nil {
				l.allowances[owner] = make(map[common.Address]uint64)
			}
			l.allowances[owner][spender] = v
		}
	}
	return iter.Error()
}
