package state

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"bondvault/core/types"
	"bondvault/storage"
)

var (
	// ErrAmountRange rejects amounts that do not fit a 256-bit word at the
	// serialization boundary.
	ErrAmountRange = errors.New("state: amount out of 256-bit range")
)

// Manager layers a dirty overlay on top of the backing database. Reads see
// pending writes; Commit flushes them in deterministic key order and Discard
// drops them. The RPC layer commits after a successful operation and
// discards after a failed one, which gives every engine operation
// all-or-nothing semantics.
type Manager struct {
	mu     sync.Mutex
	db     storage.Database
	dirty  map[string][]byte
	gone   map[string]struct{}
	events []*types.Event
}

// NewManager creates a state manager over the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{
		db:    db,
		dirty: make(map[string][]byte),
		gone:  make(map[string]struct{}),
	}
}

func hashKey(parts ...[]byte) []byte {
	size := 0
	for _, part := range parts {
		size += len(part) + 1
	}
	buf := make([]byte, 0, size)
	for _, part := range parts {
		buf = append(buf, part...)
		buf = append(buf, ':')
	}
	return ethcrypto.Keccak256(buf)
}

func (m *Manager) get(key []byte) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := string(key)
	if _, deleted := m.gone[k]; deleted {
		return nil, false, nil
	}
	if value, ok := m.dirty[k]; ok {
		return append([]byte{}, value...), true, nil
	}
	value, err := m.db.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

func (m *Manager) put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := string(key)
	delete(m.gone, k)
	m.dirty[k] = append([]byte{}, value...)
	return nil
}

func (m *Manager) delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := string(key)
	delete(m.dirty, k)
	m.gone[k] = struct{}{}
	return nil
}

// Commit flushes pending writes and deletes to the backing database and
// clears the overlay. Keys are applied in sorted order so repeated runs over
// the same operations produce identical database mutations.
func (m *Manager) Commit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.dirty)+len(m.gone))
	for k := range m.dirty {
		keys = append(keys, k)
	}
	for k := range m.gone {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, deleted := m.gone[k]; deleted {
			if err := m.db.Delete([]byte(k)); err != nil {
				return fmt.Errorf("state: commit delete: %w", err)
			}
			continue
		}
		if err := m.db.Put([]byte(k), m.dirty[k]); err != nil {
			return fmt.Errorf("state: commit put: %w", err)
		}
	}
	m.dirty = make(map[string][]byte)
	m.gone = make(map[string]struct{})
	m.events = nil
	return nil
}

// Discard drops every pending write, delete and buffered event.
func (m *Manager) Discard() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirty = make(map[string][]byte)
	m.gone = make(map[string]struct{})
	m.events = nil
}

// AppendEvent buffers an event produced by the operation in flight. Events
// are cleared on both Commit and Discard; callers drain them with Events
// before committing.
func (m *Manager) AppendEvent(event *types.Event) {
	if event == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

// Events returns the events buffered since the last Commit or Discard.
func (m *Manager) Events() []*types.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*types.Event, len(m.events))
	copy(out, m.events)
	return out
}

func (m *Manager) putRecord(key []byte, record interface{}) error {
	encoded, err := rlp.EncodeToBytes(record)
	if err != nil {
		return fmt.Errorf("state: encode record: %w", err)
	}
	return m.put(key, encoded)
}

func (m *Manager) getRecord(key []byte, out interface{}) (bool, error) {
	data, ok, err := m.get(key)
	if err != nil {
		return false, err
	}
	if !ok || len(data) == 0 {
		return false, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, fmt.Errorf("state: decode record: %w", err)
	}
	return true, nil
}

// checkAmount range-checks an amount into a 256-bit word before it reaches
// the codec.
func checkAmount(amount *big.Int) (*big.Int, error) {
	if amount == nil {
		return big.NewInt(0), nil
	}
	if amount.Sign() < 0 {
		return nil, ErrAmountRange
	}
	if _, overflow := uint256.FromBig(amount); overflow {
		return nil, ErrAmountRange
	}
	return new(big.Int).Set(amount), nil
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
