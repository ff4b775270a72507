package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/keelworks/vaultward/internal/vault"
)

// MembershipPort defines the vault operations the sweeper needs.
type MembershipPort interface {
	List(ctx context.Context) ([]vault.Member, error)
	Delete(ctx context.Context, memberID string) error
}

// Locker serializes sweep runs across processes. A held lock means another
// run is in flight and this one must be skipped, never run concurrently.
type Locker interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context)
}

// Summary is the outcome of one sweep.
type Summary struct {
	Total   int      `json:"totalUsers"`
	Deleted int      `json:"deleted"`
	Skipped bool     `json:"skipped,omitempty"`
	Errors  []string `json:"errors"`
}

// Sweeper lists all members, classifies each against the policy, and deletes
// the matches with rate-limited pacing between deletions.
type Sweeper struct {
	members MembershipPort
	locker  Locker
	policy  Policy
	pause   time.Duration
	logger  *slog.Logger
	clock   func() time.Time
}

// SweeperConfig collects Sweeper dependencies. Locker may be nil for
// single-process deployments and tests.
type SweeperConfig struct {
	Members MembershipPort
	Locker  Locker
	Policy  Policy
	Pause   time.Duration
	Logger  *slog.Logger
	Clock   func() time.Time
}

// NewSweeper wires dependencies for the retention sweep.
func NewSweeper(cfg SweeperConfig) *Sweeper {
	pause := cfg.Pause
	if pause <= 0 {
		pause = 750 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Sweeper{
		members: cfg.Members,
		locker:  cfg.Locker,
		policy:  cfg.Policy,
		pause:   pause,
		logger:  logger,
		clock:   clock,
	}
}

// Run executes one sweep. A per-member delete failure is recorded and the
// pass continues; only a failed member listing aborts the run.
func (s *Sweeper) Run(ctx context.Context) (Summary, error) {
	return s.sweep(ctx, false)
}

// Report classifies without deleting, for the weekly would-delete summary.
func (s *Sweeper) Report(ctx context.Context) (Summary, error) {
	return s.sweep(ctx, true)
}

func (s *Sweeper) sweep(ctx context.Context, dryRun bool) (Summary, error) {
	if s.locker != nil && !dryRun {
		ok, err := s.locker.Acquire(ctx)
		if err != nil {
			return Summary{}, fmt.Errorf("retention: acquire lock: %w", err)
		}
		if !ok {
			s.logger.Info("retention sweep already running, skipping")
			return Summary{Skipped: true, Errors: []string{}}, nil
		}
		defer s.locker.Release(ctx)
	}

	members, err := s.members.List(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("retention: list members: %w", err)
	}

	summary := Summary{Total: len(members), Errors: []string{}}
	now := s.clock()
	limiter := rate.NewLimiter(rate.Every(s.pause), 1)

	for _, member := range members {
		verdict := Classify(member, now, s.policy)
		if !verdict.Delete() {
			continue
		}
		logger := s.logger.With(
			slog.String("member_id", member.ID),
			slog.String("email", member.Email),
			slog.String("reason", verdict.Reason()),
		)
		if dryRun {
			logger.Info("retention report: member would be deleted")
			summary.Deleted++
			continue
		}
		if err := limiter.Wait(ctx); err != nil {
			return summary, fmt.Errorf("retention: pacing interrupted: %w", err)
		}
		if err := s.members.Delete(ctx, member.ID); err != nil {
			logger.Error("retention delete failed", slog.Any("error", err))
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", member.Email, err))
			continue
		}
		logger.Info("retention delete")
		summary.Deleted++
	}

	s.logger.Info("retention sweep completed",
		slog.Int("total", summary.Total),
		slog.Int("deleted", summary.Deleted),
		slog.Int("errors", len(summary.Errors)),
		slog.Bool("dry_run", dryRun),
	)
	return summary, nil
}
