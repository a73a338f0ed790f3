package repair

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"splitledger/internal/catalog"
	"splitledger/internal/config"
	"splitledger/internal/invite"
	"splitledger/internal/splits"
	"splitledger/internal/storage"
)

// ErrJobRunning is returned when another mutating job holds the lock.
var ErrJobRunning = errors.New("another repair job is already running")

// ErrFutureWindow is returned when a cancellation window reaches past today.
var ErrFutureWindow = errors.New("window end date must not be in the future")

// Runner executes repair jobs against the shared database.
type Runner struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *storage.DB
	catalog *catalog.Store
	splits  *splits.Store
	invites *invite.Store
}

// NewRunner assembles a runner and its stores.
func NewRunner(cfg *config.Config, logger *slog.Logger, db *storage.DB) *Runner {
	return &Runner{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		catalog: catalog.NewStore(db),
		splits:  splits.NewStore(db),
		invites: invite.NewStore(db),
	}
}

// Catalog exposes the runner's catalog store for test seeding and callers
// that need to resolve ownership alongside a job.
func (r *Runner) Catalog() *catalog.Store { return r.catalog }

// Splits exposes the runner's split store.
func (r *Runner) Splits() *splits.Store { return r.splits }

// Invites exposes the runner's invitation store.
func (r *Runner) Invites() *invite.Store { return r.invites }

// Options controls one job invocation.
type Options struct {
	// DryRun computes and reports the change-set without writing.
	DryRun bool
	// Scope narrows the job to releases and/or a release-date window.
	Scope catalog.Scope
	// Limit bounds how many artists the owner-change job processes; zero
	// falls back to the configured jobs.batch_limit.
	Limit int
	// Now anchors date arithmetic; the zero value means the wall clock.
	Now time.Time
}

func (o Options) today() time.Time {
	if o.Now.IsZero() {
		return time.Now().UTC()
	}
	return o.Now
}

// effectiveLimit resolves the per-run bound: an explicit option wins,
// otherwise the configured jobs.batch_limit applies. Zero means unbounded.
func (r *Runner) effectiveLimit(opts Options) int {
	if opts.Limit > 0 {
		return opts.Limit
	}
	return r.cfg.Jobs.BatchLimit
}

// NewRunID mints the identifier that ties one invocation's log lines
// together.
func NewRunID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// acquireLock takes the job file lock. Dry runs never lock: they only read.
func (r *Runner) acquireLock(opts Options) (release func(), err error) {
	if opts.DryRun {
		return func() {}, nil
	}
	lock := flock.New(r.cfg.JobLockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire job lock: %w", err)
	}
	if !locked {
		return nil, ErrJobRunning
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("release job lock", "error", err)
		}
	}, nil
}

// SplitRef is the JSON shape of one split in a job summary.
type SplitRef struct {
	ID       int64  `json:"id"`
	SongID   int64  `json:"song_id"`
	UserID   *int64 `json:"user_id,omitempty"`
	Rate     string `json:"rate"`
	Revision int    `json:"revision"`
	Status   string `json:"status"`
	IsOwner  bool   `json:"is_owner"`
}

func newSplitRef(split *splits.Split) SplitRef {
	return SplitRef{
		ID:       split.ID,
		SongID:   split.SongID,
		UserID:   split.UserID,
		Rate:     split.Rate.StringFixed(4),
		Revision: split.Revision,
		Status:   string(split.Status),
		IsOwner:  split.IsOwner,
	}
}

func splitRefs(group []*splits.Split) []SplitRef {
	refs := make([]SplitRef, len(group))
	for i, split := range group {
		refs[i] = newSplitRef(split)
	}
	return refs
}
