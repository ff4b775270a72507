// Package vault talks to the credential vault's administration API: member
// lifecycle operations plus the short-lived session token they require.
package vault

import "time"

// MemberStatus is the lifecycle stage of an organization membership.
type MemberStatus int

// Membership lifecycle states as reported by the administration API.
const (
	StatusRevoked   MemberStatus = -1
	StatusInvited   MemberStatus = 0
	StatusAccepted  MemberStatus = 1
	StatusConfirmed MemberStatus = 2
)

// String returns a human-readable status name.
func (s MemberStatus) String() string {
	switch s {
	case StatusRevoked:
		return "revoked"
	case StatusInvited:
		return "invited"
	case StatusAccepted:
		return "accepted"
	case StatusConfirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}

// CollectionGrant gives a member access to one credential collection.
type CollectionGrant struct {
	ID            string `json:"id"`
	ReadOnly      bool   `json:"readOnly"`
	HidePasswords bool   `json:"hidePasswords"`
	Manage        bool   `json:"manage"`
}

// Member is a person's standing in the vault organization. It is always
// re-fetched from the API before a decision is made, never mutated locally.
type Member struct {
	ID               string            `json:"id"`
	UserID           string            `json:"userId"`
	Email            string            `json:"email"`
	Name             string            `json:"name"`
	Status           MemberStatus      `json:"status"`
	TwoFactorEnabled bool              `json:"twoFactorEnabled"`
	PasswordSet      bool              `json:"hasMasterPassword"`
	CreatedAt        time.Time         `json:"creationDate"`
	LastActive       time.Time         `json:"lastActiveDate"`
	Collections      []CollectionGrant `json:"collections"`
}

// Disabled reports whether the membership has been revoked by an admin.
func (m Member) Disabled() bool {
	return m.Status == StatusRevoked
}
