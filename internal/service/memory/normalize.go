package memory

import (
	"strings"
	"time"

	"github.com/sandevgo/tuskagent/internal/core"
)

const (
	// Records with identical text written this close together are
	// treated as one retried write.
	duplicateWindow = time.Minute
)

// normalizeRecords converts chronologically ordered durable records into
// turns. Legacy rows are mapped into the same shape as current ones and
// every turn id is derived from the record id, so normalizing the same
// rows twice yields identical output.
func normalizeRecords(records []core.DurableRecord, contentLimit int) (turns []core.MemoryTurn, legacy int) {
	turns = make([]core.MemoryTurn, 0, len(records)*2)

	var prev *core.TurnPair
	var prevAt time.Time
	for _, rec := range records {
		pair, at, ok := recordPair(rec)
		if !ok {
			continue
		}
		if rec.Shape == core.ShapeLegacy {
			legacy++
		}
		if prev != nil && samePair(*prev, pair) && at.Sub(prevAt) < duplicateWindow {
			continue
		}
		turns = append(turns, pairTurns(rec.ID, pair, at, contentLimit)...)
		prev, prevAt = &pair, at
	}
	return turns, legacy
}

func recordPair(rec core.DurableRecord) (core.TurnPair, time.Time, bool) {
	switch rec.Shape {
	case core.ShapeTurnPair:
		if rec.Pair == nil {
			return core.TurnPair{}, time.Time{}, false
		}
		return *rec.Pair, rec.CreatedAt, true
	case core.ShapeLegacy:
		if rec.Legacy == nil {
			return core.TurnPair{}, time.Time{}, false
		}
		at := rec.Legacy.Timestamp
		if at.IsZero() {
			at = rec.CreatedAt
		}
		return core.TurnPair{
			UserText:  rec.Legacy.UserMessage,
			AgentText: rec.Legacy.AIResponse,
		}, at, true
	default:
		return core.TurnPair{}, time.Time{}, false
	}
}

func samePair(a, b core.TurnPair) bool {
	return a.UserText == b.UserText && a.AgentText == b.AgentText
}

// pairTurns splits one exchange into at most two turns, customer first.
func pairTurns(recordID string, pair core.TurnPair, at time.Time, contentLimit int) []core.MemoryTurn {
	turns := make([]core.MemoryTurn, 0, 2)
	if strings.TrimSpace(pair.UserText) != "" {
		turns = append(turns, core.MemoryTurn{
			ID:             recordID + "-u",
			Content:        core.TruncateContent(pair.UserText, contentLimit),
			IsFromCustomer: true,
			CreatedAt:      at,
			Intent:         pair.Intent,
			Sentiment:      pair.Sentiment,
		})
	}
	if strings.TrimSpace(pair.AgentText) != "" {
		turns = append(turns, core.MemoryTurn{
			ID:        recordID + "-a",
			Content:   core.TruncateContent(pair.AgentText, contentLimit),
			CreatedAt: at,
		})
	}
	return turns
}

func tail(turns []core.MemoryTurn, limit int) []core.MemoryTurn {
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]core.MemoryTurn, len(turns))
	copy(out, turns)
	return out
}

func reverse(records []core.DurableRecord) {
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
}
