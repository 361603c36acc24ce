package master

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"census-grid/census"
	gerrors "census-grid/pkg/errors"
)

// ErrUnknownView is returned when a merge names a view that was never
// produced or has been evicted from the registry.
var ErrUnknownView = errors.New("unknown view")

const defaultMergeAttempts = 3

// MetricsRecorder receives operation outcomes.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Service runs execute and merge against an injected master store.
type Service struct {
	store         *Store
	views         *Views
	fallback      func() census.Table
	policy        census.MergePolicy
	metrics       MetricsRecorder
	now           func() time.Time
	mergeAttempts int
	seq           atomic.Uint64
}

// Option customises a Service.
type Option func(*Service)

// WithFallback sets the table used to self-heal an empty store.
func WithFallback(fn func() census.Table) Option {
	return func(s *Service) { s.fallback = fn }
}

// WithMergePolicy sets the default insert/delete policy for merges.
func WithMergePolicy(p census.MergePolicy) Option {
	return func(s *Service) { s.policy = p }
}

// WithViews replaces the view registry.
func WithViews(v *Views) Option {
	return func(s *Service) { s.views = v }
}

// WithMetrics installs a metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService constructs a service backed by the supplied store.
func NewService(store *Store, opts ...Option) *Service {
	s := &Service{
		store:         store,
		views:         NewViews(DefaultViewCapacity),
		fallback:      census.Fallback,
		now:           time.Now,
		mergeAttempts: defaultMergeAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying master store.
func (s *Service) Store() *Store {
	return s.store
}

// MergePolicy returns the default merge policy.
func (s *Service) MergePolicy() census.MergePolicy {
	return s.policy
}

// Execute filters a copy of the master table. An unset or empty master is
// first reinitialised from the fallback table.
func (s *Service) Execute(ctx context.Context, sel census.Selection) (view View, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = gerrors.NewExecuteFailedError(fmt.Errorf("panic: %v", r))
		}
		s.observe(ctx, "execute", err == nil, time.Since(start))
	}()

	if err := ctx.Err(); err != nil {
		return View{}, gerrors.NewExecuteFailedError(err)
	}

	table, version := s.loadHealed()
	rows := census.Filter(table, sel)

	view = View{
		ID:        uuid.New(),
		Seq:       s.seq.Add(1),
		Selection: sel,
		Columns:   census.Columns(rows),
		Rows:      rows,
		Version:   version,
		CreatedAt: s.now().UTC(),
	}
	s.views.remember(view)

	log.Debug().
		Str("view_id", view.ID.String()).
		Uint64("seq", view.Seq).
		Int("rows", len(rows)).
		Int("master_rows", len(table)).
		Msg("view executed")
	return view, nil
}

// MergeRequest carries edited rows back from a view.
type MergeRequest struct {
	// ViewID, when set, names the view being committed; its selection wins
	// over Selection.
	ViewID    uuid.UUID
	Selection census.Selection
	Rows      census.Table
	// Policy overrides the service default when non-nil.
	Policy *census.MergePolicy
}

// Merge reconciles edited rows into the master table using compare-and-swap
// so concurrent merges never silently overwrite each other.
func (s *Service) Merge(ctx context.Context, req MergeRequest) (report census.MergeReport, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "merge", err == nil, time.Since(start)) }()

	sel := req.Selection
	if req.ViewID != uuid.Nil {
		ref, ok := s.views.lookup(req.ViewID)
		if !ok {
			return census.MergeReport{}, fmt.Errorf("%w: %s", ErrUnknownView, req.ViewID)
		}
		sel = ref.selection
	}
	policy := s.policy
	if req.Policy != nil {
		policy = *req.Policy
	}

	for attempt := 1; attempt <= s.mergeAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return census.MergeReport{}, err
		}
		table, version, set := s.store.Load()
		if !set {
			table = nil
		}
		merged, rep, err := census.Merge(table, req.Rows, sel, policy)
		if err != nil {
			return census.MergeReport{}, err
		}
		if _, ok := s.store.CompareAndSwap(version, merged); ok {
			log.Info().
				Str("mode", string(rep.Mode)).
				Int("updated", rep.Updated).
				Int("inserted", rep.Inserted).
				Int("deleted", rep.Deleted).
				Int("rows", rep.Rows).
				Msg("merged edits into master table")
			return rep, nil
		}
		log.Debug().Int("attempt", attempt).Msg("master table changed during merge, retrying")
	}
	return census.MergeReport{}, gerrors.NewMergeConflictError(s.mergeAttempts)
}

// Options returns the dropdown choices derived from the master table.
func (s *Service) Options(ctx context.Context) census.OptionSet {
	table, _ := s.loadHealed()
	return census.Options(table)
}

// Snapshot returns a copy of the full master table.
func (s *Service) Snapshot(ctx context.Context) census.Table {
	table, _, _ := s.store.Load()
	return table
}

// ViewInfo describes a remembered view.
type ViewInfo struct {
	ID        uuid.UUID        `json:"id"`
	Seq       uint64           `json:"seq"`
	Selection census.Selection `json:"selection"`
	Version   uint64           `json:"master_version"`
	CreatedAt time.Time        `json:"created_at"`
}

// Describe returns what is remembered about a view.
func (s *Service) Describe(id uuid.UUID) (ViewInfo, error) {
	ref, ok := s.views.lookup(id)
	if !ok {
		return ViewInfo{}, fmt.Errorf("%w: %s", ErrUnknownView, id)
	}
	return ViewInfo{ID: id, Seq: ref.seq, Selection: ref.selection, Version: ref.version, CreatedAt: ref.createdAt}, nil
}

func (s *Service) loadHealed() (census.Table, uint64) {
	table, version, reset := s.store.loadOrReset(s.fallback)
	if reset {
		log.Warn().Uint64("version", version).Msg("master table empty, reinitialised from fallback data")
	}
	return table, version
}

func (s *Service) observe(ctx context.Context, op string, ok bool, d time.Duration) {
	if s.metrics != nil {
		s.metrics.Observe(ctx, op, ok, d)
	}
}
