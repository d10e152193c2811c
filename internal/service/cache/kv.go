package cache

import (
	"time"

	"github.com/sandevgo/tuskagent/internal/core"
)

// KV is the tier-1 store for memory turns.
type KV interface {
	Get(key string) ([]core.MemoryTurn, bool)
	Set(key string, turns []core.MemoryTurn)
	Delete(key string) bool
	// ScanPrefix returns keys starting with prefix. Callers pass full
	// delimiter-terminated prefixes; no substring matching is done.
	ScanPrefix(prefix string) []string
	LastAccess(key string) (time.Time, bool)
	// Lock serializes work on one key and returns the unlock func.
	Lock(key string) func()
	Len() int
}
