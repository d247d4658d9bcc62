package history

import (
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/lobserver/internal/foundation/normalization"
)

// Reason says why a revision was recorded.
type Reason string

const (
	ReasonSeed       Reason = "seed"
	ReasonUpdate     Reason = "update"
	ReasonSnapshot   Reason = "snapshot"
	ReasonQuarantine Reason = "quarantine"
	ReasonReload     Reason = "reload"
)

var reasonNormalizer = normalization.NewNormalizer("revision reason", map[string]Reason{
	"seed":       ReasonSeed,
	"update":     ReasonUpdate,
	"snapshot":   ReasonSnapshot,
	"quarantine": ReasonQuarantine,
	"reload":     ReasonReload,
}, "")

// ParseReason validates a reason name. Empty input yields the empty reason,
// which matches every revision.
func ParseReason(raw string) (Reason, error) {
	return reasonNormalizer.Parse(raw)
}

// Revision is one archived copy of the document bytes.
type Revision struct {
	ID        string    `json:"id"`
	Reason    Reason    `json:"reason"`
	Backend   string    `json:"backend"`
	CreatedAt time.Time `json:"created_at"`
	Size      int       `json:"size"`
	// Valid is false for quarantined bytes that did not parse.
	Valid   bool   `json:"valid"`
	Payload []byte `json:"-"`
}

// NewRevision builds a revision with a fresh id and timestamp.
func NewRevision(reason Reason, backend string, payload []byte, valid bool) Revision {
	return Revision{
		ID:        uuid.NewString(),
		Reason:    reason,
		Backend:   backend,
		CreatedAt: time.Now().UTC(),
		Size:      len(payload),
		Valid:     valid,
		Payload:   append([]byte(nil), payload...),
	}
}
