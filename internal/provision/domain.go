// Package provision drives the membership lifecycle for operator commands.
package provision

import (
	"context"

	"github.com/keelworks/vaultward/internal/audit"
	"github.com/keelworks/vaultward/internal/directory"
	"github.com/keelworks/vaultward/internal/vault"
)

// Result is the user-facing outcome of one command, rendered by the chat
// front-end. Every command produces exactly one Result.
type Result struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// DirectoryPort resolves personal emails to organizational identities.
type DirectoryPort interface {
	Lookup(ctx context.Context, email string) (*directory.Identity, error)
}

// MembershipPort defines the vault operations the workflow drives.
type MembershipPort interface {
	FindByEmail(ctx context.Context, email string) (*vault.Member, error)
	Invite(ctx context.Context, email string, grants []vault.CollectionGrant) error
	Reinvite(ctx context.Context, memberID string) error
	Confirm(ctx context.Context, memberID, userID string) error
}

// PolicyPort resolves a role to collection grants.
type PolicyPort interface {
	Grants(role string) []vault.CollectionGrant
	CollectionNames(role string) []string
}

// AuditPort records operator actions. Recording is best effort; failures are
// logged, never surfaced.
type AuditPort interface {
	Record(ctx context.Context, entry audit.Entry) error
}
