package provision

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/keelworks/vaultward/internal/audit"
	"github.com/keelworks/vaultward/internal/vault"
)

// Service orchestrates provisioning and confirmation commands. Directory
// lookup always precedes any vault mutation: an email the directory cannot
// attribute to a role is rejected before any vault API call.
type Service struct {
	directory DirectoryPort
	members   MembershipPort
	policy    PolicyPort
	auditor   AuditPort
	logger    *slog.Logger
}

// NewService constructs a Service. The auditor may be nil.
func NewService(dir DirectoryPort, members MembershipPort, policy PolicyPort, auditor AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{directory: dir, members: members, policy: policy, auditor: auditor, logger: logger}
}

// ProvisionAccess invites the person behind email into the vault organization
// or resends their invitation, depending on current membership state.
func (s *Service) ProvisionAccess(ctx context.Context, email, operator string) Result {
	logger := s.logger.With(slog.String("command", "provision"), slog.String("email", email), slog.String("operator", operator))

	identity, err := s.directory.Lookup(ctx, email)
	if err != nil {
		logger.Error("directory lookup failed", slog.Any("error", err))
		return s.failure(ctx, "provision", email, operator, err)
	}
	if identity == nil {
		logger.Info("identity not found in directory")
		return Result{
			Title:       "Identity not found",
			Description: "No directory record exists for " + email + ", so no vault access can be provisioned.",
		}
	}

	member, err := s.members.FindByEmail(ctx, email)
	if err != nil {
		logger.Error("membership lookup failed", slog.Any("error", err))
		return s.failure(ctx, "provision", email, operator, err)
	}

	switch {
	case member == nil:
		grants := s.policy.Grants(identity.Role)
		if err := s.members.Invite(ctx, email, grants); err != nil {
			logger.Error("invite failed", slog.Any("error", err))
			return s.failure(ctx, "provision", email, operator, err)
		}
		names := s.policy.CollectionNames(identity.Role)
		s.record(ctx, operator, "invite", email, "sent")
		logger.Info("invitation sent", slog.String("role", identity.Role))
		return Result{
			Title:       "Invitation sent",
			Description: identity.Name + " has been invited with access to: " + strings.Join(names, ", ") + ".",
		}

	case member.Status == vault.StatusInvited || member.Status == vault.StatusAccepted:
		if err := s.members.Reinvite(ctx, member.ID); err != nil {
			logger.Error("reinvite failed", slog.Any("error", err))
			return s.failure(ctx, "provision", email, operator, err)
		}
		s.record(ctx, operator, "reinvite", email, "sent")
		logger.Info("invitation resent", slog.String("member_id", member.ID))
		return Result{
			Title:       "Invitation resent",
			Description: email + " already had a pending invitation; a fresh one is on its way.",
		}

	case member.Status == vault.StatusConfirmed:
		logger.Info("member already confirmed", slog.String("member_id", member.ID))
		return Result{
			Title:       "Already confirmed",
			Description: email + " is already a confirmed member of the vault organization.",
		}

	default:
		logger.Info("member revoked, no automated action", slog.String("member_id", member.ID))
		return Result{
			Title:       "Membership revoked",
			Description: email + " was revoked by an admin; restoring access requires explicit admin action.",
		}
	}
}

// ConfirmAccess completes the lifecycle for an accepted member. Confirming an
// already-confirmed member is a no-op; a member without key material yields a
// "not ready" result with zero confirm calls issued.
func (s *Service) ConfirmAccess(ctx context.Context, email, operator string) Result {
	logger := s.logger.With(slog.String("command", "confirm"), slog.String("email", email), slog.String("operator", operator))

	identity, err := s.directory.Lookup(ctx, email)
	if err != nil {
		logger.Error("directory lookup failed", slog.Any("error", err))
		return s.failure(ctx, "confirm", email, operator, err)
	}
	if identity == nil {
		return Result{
			Title:       "Identity not found",
			Description: "No directory record exists for " + email + ".",
		}
	}

	member, err := s.members.FindByEmail(ctx, email)
	if err != nil {
		logger.Error("membership lookup failed", slog.Any("error", err))
		return s.failure(ctx, "confirm", email, operator, err)
	}
	if member == nil {
		return Result{
			Title:       "No vault membership",
			Description: email + " has not been invited to the vault organization yet.",
		}
	}
	if member.Status == vault.StatusConfirmed {
		logger.Info("member already confirmed", slog.String("member_id", member.ID))
		return Result{
			Title:       "Already confirmed",
			Description: email + " is already a confirmed member; nothing to do.",
		}
	}

	if err := s.members.Confirm(ctx, member.ID, member.UserID); err != nil {
		if errors.Is(err, vault.ErrKeyNotReady) {
			logger.Info("member not ready to confirm", slog.String("member_id", member.ID))
			return Result{
				Title:       "Not ready to confirm",
				Description: email + " has not logged in and generated key material yet. Ask them to complete their first login, then confirm again.",
			}
		}
		logger.Error("confirm failed", slog.Any("error", err))
		return s.failure(ctx, "confirm", email, operator, err)
	}

	s.record(ctx, operator, "confirm", email, "confirmed")
	logger.Info("member confirmed", slog.String("member_id", member.ID))
	return Result{
		Title:       "Member confirmed",
		Description: email + " is now a confirmed member of the vault organization.",
	}
}

// failure maps an error to its user-facing result and records the outcome.
// Unknown errors fall back to a generic message; the full error is logged by
// the caller, never shown to the end user.
func (s *Service) failure(ctx context.Context, action, email, operator string, err error) Result {
	s.record(ctx, operator, action, email, "error")

	var apiErr *vault.APIError
	switch {
	case errors.Is(err, vault.ErrAuthentication):
		return Result{
			Title:       "Vault authentication failed",
			Description: "The vault rejected our service credentials. Check the client credentials configuration.",
		}
	case errors.Is(err, vault.ErrAlreadyExists):
		return Result{
			Title:       "Already invited",
			Description: email + " already has membership in a conflicting state. Check their status in the vault admin console.",
		}
	case errors.Is(err, vault.ErrKeyNotReady):
		return Result{
			Title:       "Not ready to confirm",
			Description: email + " has not generated key material yet.",
		}
	case errors.As(err, &apiErr):
		return Result{
			Title:       "Vault API error",
			Description: "The vault administration API declined the request. The incident has been logged.",
		}
	default:
		return Result{
			Title:       "Something went wrong",
			Description: "The command could not be completed. The incident has been logged; contact support if it persists.",
		}
	}
}

func (s *Service) record(ctx context.Context, operator, action, target, outcome string) {
	if s.auditor == nil {
		return
	}
	entry := audit.Entry{Operator: operator, Action: action, Target: target, Outcome: outcome}
	if err := s.auditor.Record(ctx, entry); err != nil {
		s.logger.Warn("audit record failed", slog.Any("error", err))
	}
}
