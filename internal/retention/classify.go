// Package retention decommissions stale or abandoned vault memberships.
package retention

import (
	"time"

	"github.com/keelworks/vaultward/internal/vault"
)

// Policy holds the retention thresholds. The defaults reflect observed
// operational practice; all three are configurable.
type Policy struct {
	NeverActivatedAfter time.Duration
	DisabledStaleAfter  time.Duration
	InactiveAfter       time.Duration
}

// DefaultPolicy returns the standard 7/30/90-day thresholds.
func DefaultPolicy() Policy {
	return Policy{
		NeverActivatedAfter: 7 * 24 * time.Hour,
		DisabledStaleAfter:  30 * 24 * time.Hour,
		InactiveAfter:       90 * 24 * time.Hour,
	}
}

// Verdict classifies one member against the retention policy. It lives only
// within a single sweep; it is never stored.
type Verdict int

// Classification outcomes, in rule priority order.
const (
	Retain Verdict = iota
	DeleteNeverActivated
	DeleteDisabledStale
	DeleteInactive
)

// Delete reports whether the verdict calls for removal.
func (v Verdict) Delete() bool {
	return v != Retain
}

// Reason returns the removal reason for logging and reporting.
func (v Verdict) Reason() string {
	switch v {
	case DeleteNeverActivated:
		return "never activated"
	case DeleteDisabledStale:
		return "disabled and stale"
	case DeleteInactive:
		return "inactive"
	default:
		return "retain"
	}
}

// Classify evaluates the retention rules in priority order; the first match
// wins. A zero LastActive counts as never active.
func Classify(m vault.Member, now time.Time, p Policy) Verdict {
	if !m.PasswordSet && olderThan(m.CreatedAt, now, p.NeverActivatedAfter) {
		return DeleteNeverActivated
	}
	if m.Disabled() && inactiveSince(m.LastActive, m.CreatedAt, now, p.DisabledStaleAfter) {
		return DeleteDisabledStale
	}
	if inactiveSince(m.LastActive, m.CreatedAt, now, p.InactiveAfter) {
		return DeleteInactive
	}
	return Retain
}

func olderThan(t, now time.Time, age time.Duration) bool {
	return !t.IsZero() && now.Sub(t) > age
}

// inactiveSince treats a member who was never active as inactive since
// creation.
func inactiveSince(lastActive, createdAt, now time.Time, age time.Duration) bool {
	ref := lastActive
	if ref.IsZero() {
		ref = createdAt
	}
	return olderThan(ref, now, age)
}
