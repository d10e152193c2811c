package core

import (
	"fmt"
	"strings"
)

const (
	keyDelimiter    = "|"
	globalSegment   = "*"
	tenantTag       = "t:"
	participantTag  = "p:"
	conversationTag = "c:"
)

var segmentEscaper = strings.NewReplacer(`\`, `\\`, "|", `\|`, ":", `\:`, "*", `\*`)

// TenantKey scopes every read and write of conversational memory.
// An empty ConversationID means participant-global memory shared by all
// of the participant's conversations within the tenant.
type TenantKey struct {
	TenantID       string
	ConversationID string
	ParticipantID  string
}

func NewTenantKey(tenantID, conversationID, participantID string) TenantKey {
	return TenantKey{
		TenantID:       strings.TrimSpace(tenantID),
		ConversationID: strings.TrimSpace(conversationID),
		ParticipantID:  strings.TrimSpace(participantID),
	}
}

// Validate returns ErrIsolation when the tenant is missing and
// ErrValidation when the participant is missing.
func (k TenantKey) Validate() error {
	if strings.TrimSpace(k.TenantID) == "" {
		return fmt.Errorf("tenant key without tenant id: %w", ErrIsolation)
	}
	if strings.TrimSpace(k.ParticipantID) == "" {
		return fmt.Errorf("tenant key without participant id: %w", ErrValidation)
	}
	return nil
}

func (k TenantKey) SessionIsolated() bool {
	return k.ConversationID != ""
}

// CacheKey renders the tier-1 key. Segments are escaped so that no id can
// produce another tenant's or participant's prefix.
func (k TenantKey) CacheKey() string {
	conv := globalSegment
	if k.SessionIsolated() {
		conv = escapeSegment(k.ConversationID)
	}
	return ParticipantPrefix(k.TenantID, k.ParticipantID) + conversationTag + conv
}

func (k TenantKey) String() string {
	return k.CacheKey()
}

// TenantPrefix is the exact prefix shared by all cache keys of one tenant,
// delimiter included.
func TenantPrefix(tenantID string) string {
	return tenantTag + escapeSegment(tenantID) + keyDelimiter
}

func ParticipantPrefix(tenantID, participantID string) string {
	return TenantPrefix(tenantID) + participantTag + escapeSegment(participantID) + keyDelimiter
}

// ParseCacheKey reverses CacheKey. ok is false for keys that do not follow
// the layout, which the isolation audit reports as violations.
func ParseCacheKey(key string) (TenantKey, bool) {
	parts := splitEscaped(key)
	if len(parts) != 3 {
		return TenantKey{}, false
	}
	if !strings.HasPrefix(parts[0], tenantTag) ||
		!strings.HasPrefix(parts[1], participantTag) ||
		!strings.HasPrefix(parts[2], conversationTag) {
		return TenantKey{}, false
	}

	k := TenantKey{
		TenantID:      unescapeSegment(strings.TrimPrefix(parts[0], tenantTag)),
		ParticipantID: unescapeSegment(strings.TrimPrefix(parts[1], participantTag)),
	}
	if conv := strings.TrimPrefix(parts[2], conversationTag); conv != globalSegment {
		k.ConversationID = unescapeSegment(conv)
	}
	if k.TenantID == "" || k.ParticipantID == "" {
		return k, false
	}
	return k, true
}

func escapeSegment(s string) string {
	return segmentEscaper.Replace(s)
}

func unescapeSegment(s string) string {
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if !escaped && r == '\\' {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}

// splitEscaped splits on unescaped delimiters.
func splitEscaped(s string) []string {
	var parts []string
	var cur strings.Builder
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			cur.WriteRune('\\')
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case string(r) == keyDelimiter:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(parts, cur.String())
}

func (k TenantKey) LogFields() (tenantID, participantID, conversationID string) {
	return k.TenantID, k.ParticipantID, k.ConversationID
}
