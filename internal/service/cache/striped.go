package cache

import (
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/sandevgo/tuskagent/internal/core"
)

const (
	DefaultShards         = 32
	DefaultMaxTurnsPerKey = 50
)

type entry struct {
	turns      []core.MemoryTurn
	lastAccess time.Time
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

type lockShard struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

// Striped is an in-process KV split over independently locked shards.
type Striped struct {
	shards   []*shard
	lockMaps []*lockShard
	maxTurns int
	now      func() time.Time
}

type Option func(*Striped)

func WithShards(n int) Option {
	return func(s *Striped) {
		if n > 0 {
			s.shards = make([]*shard, n)
			s.lockMaps = make([]*lockShard, n)
		}
	}
}

func WithMaxTurnsPerKey(n int) Option {
	return func(s *Striped) {
		if n > 0 {
			s.maxTurns = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Striped) {
		s.now = now
	}
}

func NewStriped(opts ...Option) *Striped {
	s := &Striped{
		shards:   make([]*shard, DefaultShards),
		lockMaps: make([]*lockShard, DefaultShards),
		maxTurns: DefaultMaxTurnsPerKey,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	for i := range s.shards {
		s.shards[i] = &shard{entries: make(map[string]*entry)}
		s.lockMaps[i] = &lockShard{locks: make(map[string]*keyLock)}
	}
	return s
}

func (s *Striped) index(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(s.shards)))
}

func (s *Striped) Get(key string) ([]core.MemoryTurn, bool) {
	sh := s.shards[s.index(key)]
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.entries[key]
	if !ok {
		return nil, false
	}
	e.lastAccess = s.now()

	// Copy out to prevent external mutation
	out := make([]core.MemoryTurn, len(e.turns))
	copy(out, e.turns)
	return out, true
}

func (s *Striped) Set(key string, turns []core.MemoryTurn) {
	if len(turns) > s.maxTurns {
		turns = turns[len(turns)-s.maxTurns:]
	}
	stored := make([]core.MemoryTurn, len(turns))
	copy(stored, turns)

	sh := s.shards[s.index(key)]
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.entries[key] = &entry{turns: stored, lastAccess: s.now()}
}

func (s *Striped) Delete(key string) bool {
	sh := s.shards[s.index(key)]
	sh.mu.Lock()
	defer sh.mu.Unlock()

	_, ok := sh.entries[key]
	delete(sh.entries, key)
	return ok
}

func (s *Striped) ScanPrefix(prefix string) []string {
	var keys []string
	for _, sh := range s.shards {
		sh.mu.RLock()
		for k := range sh.entries {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sh.mu.RUnlock()
	}
	return keys
}

func (s *Striped) LastAccess(key string) (time.Time, bool) {
	sh := s.shards[s.index(key)]
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	e, ok := sh.entries[key]
	if !ok {
		return time.Time{}, false
	}
	return e.lastAccess, true
}

func (s *Striped) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n
}

// Lock takes the per-key mutex. Lock entries are reference counted and
// dropped once no goroutine holds or waits on them.
func (s *Striped) Lock(key string) func() {
	ls := s.lockMaps[s.index(key)]

	ls.mu.Lock()
	kl, ok := ls.locks[key]
	if !ok {
		kl = &keyLock{}
		ls.locks[key] = kl
	}
	kl.refs++
	ls.mu.Unlock()

	kl.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			kl.mu.Unlock()
			ls.mu.Lock()
			kl.refs--
			if kl.refs == 0 {
				delete(ls.locks, key)
			}
			ls.mu.Unlock()
		})
	}
}
