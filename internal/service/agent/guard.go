package agent

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/sandevgo/tuskagent/internal/core"
)

const DefaultDedupWindow = 2 * time.Minute

// ProcessedGuard suppresses repeated deliveries of the same inbound message
// within a short window. Entries are keyed by conversation scope and
// normalized content.
type ProcessedGuard struct {
	mu        sync.Mutex
	window    time.Duration
	now       func() time.Time
	entries   map[string]*guardEntry
	lastPrune time.Time
}

type guardEntry struct {
	at    time.Time
	reply *Reply
}

func NewProcessedGuard(window time.Duration) *ProcessedGuard {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &ProcessedGuard{
		window:  window,
		now:     time.Now,
		entries: make(map[string]*guardEntry),
	}
}

// Claim registers a message. When the same message was seen within the
// window, dup is true and prior holds its reply if processing finished.
func (g *ProcessedGuard) Claim(key core.TenantKey, text string) (fp string, prior *Reply, dup bool) {
	fp = fingerprint(key, text)
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	g.prune(now)

	if e, ok := g.entries[fp]; ok && now.Sub(e.at) < g.window {
		return fp, e.reply, true
	}
	g.entries[fp] = &guardEntry{at: now}
	return fp, nil, false
}

// Complete stores the reply for later duplicates.
func (g *ProcessedGuard) Complete(fp string, reply Reply) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if e, ok := g.entries[fp]; ok {
		e.reply = &reply
	}
}

// Release forgets a claim so the message can be retried.
func (g *ProcessedGuard) Release(fp string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.entries, fp)
}

func (g *ProcessedGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

func (g *ProcessedGuard) prune(now time.Time) {
	if now.Sub(g.lastPrune) < g.window {
		return
	}
	for fp, e := range g.entries {
		if now.Sub(e.at) >= g.window {
			delete(g.entries, fp)
		}
	}
	g.lastPrune = now
}

func fingerprint(key core.TenantKey, text string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(text), " "))
	sum := sha256.Sum256([]byte(key.CacheKey() + "\x00" + normalized))
	return hex.EncodeToString(sum[:])
}
