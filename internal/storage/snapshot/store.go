// Package snapshot persists engine snapshots in a Pebble database, one
// borsh-encoded record per entity.
package snapshot

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/near/borsh-go"

	"futarchy/internal/model"
)

var (
	ErrClosed   = errors.New("snapshot store is closed")
	ErrNotFound = errors.New("record not found")
	ErrNoState  = errors.New("no snapshot stored")
)

var (
	prefixHeader   = []byte("h/")
	prefixMint     = []byte("m/")
	prefixBalance  = []byte("b/")
	prefixPool     = []byte("p/")
	prefixProposal = []byte("r/")
	prefixVault    = []byte("v/")

	allPrefixes = [][]byte{prefixHeader, prefixMint, prefixBalance, prefixPool, prefixProposal, prefixVault}
)

const defaultCacheSize = 256

type header struct {
	Slot uint64
	Seq  uint64
	DAO  model.DAO
}

// Store is a Pebble-backed snapshot store with an LRU cache over pool and
// proposal lookups.
type Store struct {
	mu        sync.RWMutex
	db        *pebble.DB
	pools     *lru.Cache[common.Address, model.Pool]
	proposals *lru.Cache[uint64, model.Proposal]
}

// Open opens or creates the store at dir.
func Open(dir string, cacheSize int) (*Store, error) {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble at %s: %w", dir, err)
	}
	pools, err := lru.New[common.Address, model.Pool](cacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}
	proposals, err := lru.New[uint64, model.Proposal](cacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, pools: pools, proposals: proposals}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func key(prefix []byte, parts ...[]byte) []byte {
	out := append([]byte(nil), prefix...)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func numberKey(n uint64) []byte {
	return key(prefixProposal, binary.BigEndian.AppendUint64(nil, n))
}

// upperBound returns the smallest key greater than every key with prefix.
func upperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	end[len(end)-1]++
	return end
}

// Save replaces the stored snapshot atomically.
func (s *Store) Save(snap model.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	for _, prefix := range allPrefixes {
		if err := batch.DeleteRange(prefix, upperBound(prefix), nil); err != nil {
			return err
		}
	}
	put := func(k []byte, v interface{}) error {
		data, err := borsh.Serialize(v)
		if err != nil {
			return fmt.Errorf("encode %q: %w", k, err)
		}
		return batch.Set(k, data, nil)
	}

	if err := put(prefixHeader, header{Slot: snap.Slot, Seq: snap.Seq, DAO: snap.DAO}); err != nil {
		return err
	}
	for _, m := range snap.Mints {
		if err := put(key(prefixMint, m.Address.Bytes()), m); err != nil {
			return err
		}
	}
	for _, b := range snap.Balances {
		if err := put(key(prefixBalance, b.Mint.Bytes(), b.Owner.Bytes()), b); err != nil {
			return err
		}
	}
	for _, p := range snap.Pools {
		if err := put(key(prefixPool, p.Address.Bytes()), p); err != nil {
			return err
		}
	}
	for _, p := range snap.Proposals {
		if err := put(numberKey(p.Number), p); err != nil {
			return err
		}
	}
	for _, v := range snap.Vaults {
		if err := put(key(prefixVault, v.Address.Bytes()), v); err != nil {
			return err
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	s.pools.Purge()
	s.proposals.Purge()
	return nil
}

// Load reads back the full snapshot.
func (s *Store) Load() (model.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return model.Snapshot{}, ErrClosed
	}

	var h header
	if err := s.get(prefixHeader, &h); err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.Snapshot{}, ErrNoState
		}
		return model.Snapshot{}, err
	}
	snap := model.Snapshot{Slot: h.Slot, Seq: h.Seq, DAO: h.DAO}
	var err error
	if snap.Mints, err = scan[model.Mint](s.db, prefixMint); err != nil {
		return model.Snapshot{}, err
	}
	if snap.Balances, err = scan[model.Balance](s.db, prefixBalance); err != nil {
		return model.Snapshot{}, err
	}
	if snap.Pools, err = scan[model.Pool](s.db, prefixPool); err != nil {
		return model.Snapshot{}, err
	}
	if snap.Proposals, err = scan[model.Proposal](s.db, prefixProposal); err != nil {
		return model.Snapshot{}, err
	}
	if snap.Vaults, err = scan[model.Vault](s.db, prefixVault); err != nil {
		return model.Snapshot{}, err
	}
	return snap, nil
}

// Pool returns one stored pool.
func (s *Store) Pool(addr common.Address) (model.Pool, error) {
	if p, ok := s.pools.Get(addr); ok {
		return p, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return model.Pool{}, ErrClosed
	}
	var p model.Pool
	if err := s.get(key(prefixPool, addr.Bytes()), &p); err != nil {
		return model.Pool{}, err
	}
	s.pools.Add(addr, p)
	return p, nil
}

// Proposal returns one stored proposal.
func (s *Store) Proposal(number uint64) (model.Proposal, error) {
	if p, ok := s.proposals.Get(number); ok {
		return p, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return model.Proposal{}, ErrClosed
	}
	var p model.Proposal
	if err := s.get(numberKey(number), &p); err != nil {
		return model.Proposal{}, err
	}
	s.proposals.Add(number, p)
	return p, nil
}

func (s *Store) get(k []byte, out interface{}) error {
	val, closer, err := s.db.Get(k)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return fmt.Errorf("%q: %w", k, ErrNotFound)
		}
		return err
	}
	defer closer.Close()
	if err := borsh.Deserialize(out, val); err != nil {
		return fmt.Errorf("decode %q: %w", k, err)
	}
	return nil
}

func scan[T any](db *pebble.DB, prefix []byte) ([]T, error) {
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []T
	for iter.First(); iter.Valid(); iter.Next() {
		var rec T
		if err := borsh.Deserialize(&rec, iter.Value()); err != nil {
			return nil, fmt.Errorf("decode %q: %w", iter.Key(), err)
		}
		out = append(out, rec)
	}
	return out, iter.Error()
}
