package cache

import (
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sandevgo/tuskagent/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTurns(contents ...string) []core.MemoryTurn {
	turns := make([]core.MemoryTurn, len(contents))
	for i, c := range contents {
		turns[i] = core.MemoryTurn{ID: fmt.Sprintf("t%d", i), Content: c}
	}
	return turns
}

func TestStriped_GetSet(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(s *Striped)
		key     string
		wantOk  bool
		wantLen int
	}{
		{
			name:   "empty_cache",
			setup:  func(s *Striped) {},
			key:    "k",
			wantOk: false,
		},
		{
			name:    "single_entry",
			setup:   func(s *Striped) { s.Set("k", makeTurns("a", "b")) },
			key:     "k",
			wantOk:  true,
			wantLen: 2,
		},
		{
			name: "overwrites_previous",
			setup: func(s *Striped) {
				s.Set("k", makeTurns("a", "b", "c"))
				s.Set("k", makeTurns("d"))
			},
			key:     "k",
			wantOk:  true,
			wantLen: 1,
		},
		{
			name: "after_delete",
			setup: func(s *Striped) {
				s.Set("k", makeTurns("a"))
				s.Delete("k")
			},
			key:    "k",
			wantOk: false,
		},
		{
			name:    "empty_slice_is_a_hit",
			setup:   func(s *Striped) { s.Set("k", []core.MemoryTurn{}) },
			key:     "k",
			wantOk:  true,
			wantLen: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStriped()
			tt.setup(s)

			turns, ok := s.Get(tt.key)
			assert.Equal(t, tt.wantOk, ok)
			assert.Len(t, turns, tt.wantLen)
		})
	}
}

func TestStriped_CopiesValues(t *testing.T) {
	s := NewStriped()
	in := makeTurns("a")
	s.Set("k", in)
	in[0].Content = "mutated"

	out, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, "a", out[0].Content)

	out[0].Content = "mutated again"
	again, _ := s.Get("k")
	assert.Equal(t, "a", again[0].Content)
}

func TestStriped_MaxTurnsKeepsNewest(t *testing.T) {
	s := NewStriped(WithMaxTurnsPerKey(2))
	s.Set("k", makeTurns("a", "b", "c"))

	out, _ := s.Get("k")
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].Content)
	assert.Equal(t, "c", out[1].Content)
}

func TestStriped_ScanPrefix(t *testing.T) {
	s := NewStriped(WithShards(4))
	s.Set("t:a|p:1|c:*", nil)
	s.Set("t:a|p:2|c:x", nil)
	s.Set("t:ab|p:1|c:*", nil)
	s.Set("orphan", nil)

	keys := s.ScanPrefix("t:a|")
	sort.Strings(keys)
	assert.Equal(t, []string{"t:a|p:1|c:*", "t:a|p:2|c:x"}, keys)
	assert.Len(t, s.ScanPrefix(""), 4)
	assert.Equal(t, 4, s.Len())
}

func TestStriped_LastAccessTracksReads(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	s := NewStriped(WithClock(func() time.Time { return now }))

	s.Set("k", makeTurns("a"))
	at, ok := s.LastAccess("k")
	require.True(t, ok)
	assert.Equal(t, now, at)

	now = now.Add(time.Hour)
	s.Get("k")
	at, _ = s.LastAccess("k")
	assert.Equal(t, now, at)

	_, ok = s.LastAccess("missing")
	assert.False(t, ok)
}

func TestStriped_LockSerializesSameKey(t *testing.T) {
	s := NewStriped()
	const workers = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			unlock := s.Lock("k")
			defer unlock()

			turns, _ := s.Get("k")
			turns = append(turns, core.MemoryTurn{Content: fmt.Sprintf("u%d", i)}, core.MemoryTurn{Content: fmt.Sprintf("a%d", i)})
			s.Set("k", turns)
		}(i)
	}
	wg.Wait()

	turns, ok := s.Get("k")
	require.True(t, ok)
	require.Len(t, turns, DefaultMaxTurnsPerKey)
	for i := 0; i+1 < len(turns); i += 2 {
		assert.Equal(t, "u", turns[i].Content[:1])
		assert.Equal(t, "a"+turns[i].Content[1:], turns[i+1].Content, "pair interleaved")
	}
}

func TestStriped_LockReleasesEntries(t *testing.T) {
	s := NewStriped(WithShards(1))
	unlock := s.Lock("k")
	unlock()
	unlock()

	assert.Empty(t, s.lockMaps[0].locks)
}

func TestStriped_LockDifferentKeysDoNotBlock(t *testing.T) {
	s := NewStriped()
	unlockA := s.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := s.Lock("b")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
}
