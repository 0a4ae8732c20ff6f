package state

import (
	"errors"
	"fmt"
	"sort"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"wity/storage"
)

// ErrTxClosed is returned when a transaction is used after Commit or Discard.
var ErrTxClosed = errors.New("state: transaction closed")

// Reader exposes read access to RLP-encoded values.
type Reader interface {
	KVGet(key []byte, out interface{}) (bool, error)
}

// Store is the read/write surface engines are bound to.
type Store interface {
	Reader
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

// Manager provides RLP-encoded key/value access to the committed economy
// state and hands out write transactions.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

// KVGet retrieves the committed value stored under key and decodes it into
// out. The boolean return value indicates whether the key existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.db.Get(kvKey(key))
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return decodeInto(data, out)
}

// Begin opens a unit of work. Writes stay in the transaction overlay until
// Commit applies them as one storage batch.
func (m *Manager) Begin() *Tx {
	return &Tx{
		db:     m.db,
		writes: make(map[string][]byte),
	}
}

// Tx is an overlay over committed state. Reads observe the transaction's own
// writes first. A transaction is single-use and not safe for concurrent use.
type Tx struct {
	db     storage.Database
	writes map[string][]byte // nil value marks a delete
	closed bool
}

// KVGet reads key through the overlay.
func (tx *Tx) KVGet(key []byte, out interface{}) (bool, error) {
	if tx.closed {
		return false, ErrTxClosed
	}
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	hashed := kvKey(key)
	if data, ok := tx.writes[string(hashed)]; ok {
		if data == nil {
			return false, nil
		}
		return decodeInto(data, out)
	}
	data, err := tx.db.Get(hashed)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return decodeInto(data, out)
}

// KVPut RLP-encodes value and stages it under key.
func (tx *Tx) KVPut(key []byte, value interface{}) error {
	if tx.closed {
		return ErrTxClosed
	}
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	tx.writes[string(kvKey(key))] = encoded
	return nil
}

// KVDelete stages the removal of key.
func (tx *Tx) KVDelete(key []byte) error {
	if tx.closed {
		return ErrTxClosed
	}
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	tx.writes[string(kvKey(key))] = nil
	return nil
}

// Dirty reports how many keys the transaction has staged.
func (tx *Tx) Dirty() int {
	return len(tx.writes)
}

// Commit writes every staged change in a single batch. The transaction is
// closed afterwards regardless of the outcome.
func (tx *Tx) Commit() error {
	if tx.closed {
		return ErrTxClosed
	}
	tx.closed = true
	if len(tx.writes) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tx.writes))
	for key := range tx.writes {
		keys = append(keys, key)
	}
	// deterministic batch layout
	sort.Strings(keys)
	batch := tx.db.NewBatch()
	for _, key := range keys {
		value := tx.writes[key]
		if value == nil {
			batch.Delete([]byte(key))
			continue
		}
		batch.Put([]byte(key), value)
	}
	tx.writes = nil
	if err := batch.Write(); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	return nil
}

// Discard drops every staged change.
func (tx *Tx) Discard() {
	tx.closed = true
	tx.writes = nil
}

func decodeInto(data []byte, out interface{}) (bool, error) {
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}
