// Package syncer merges child lists from the external source into the local
// node store.
//
// A sync only ever inserts. Children whose external id is already present
// are skipped, so running the same sync twice is a no-op the second time and
// two concurrent syncs of one parent leave exactly one row per external id.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"atatek/internal/audit"
	"atatek/internal/tree/metrics"
	"atatek/internal/tree/models"
	"atatek/internal/tree/source"
	"atatek/pkg/platform/circuit"
	"atatek/pkg/platform/sentinel"
	"atatek/pkg/requestcontext"
)

// DefaultTimeout bounds one fetch-and-merge.
const DefaultTimeout = 10 * time.Second

// ErrUpstreamUnavailable marks a failed fetch. Nothing was written.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

var tracer = otel.Tracer("atatek/tree/syncer")

type ChildSource interface {
	FetchChildren(ctx context.Context, ref int64) ([]source.Child, error)
}

type NodeWriter interface {
	ExistingExternalIDs(ctx context.Context, ids []int64) (map[int64]struct{}, error)
	InsertNodes(ctx context.Context, nodes []*models.Node) ([]*models.Node, error)
}

type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Syncer is safe for concurrent use.
type Syncer struct {
	source  ChildSource
	store   NodeWriter
	actorID int64
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
	auditor Auditor
	breaker *circuit.Breaker
	now     func() time.Time
}

// Option configures a Syncer.
type Option func(*Syncer)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Syncer) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Syncer) {
		s.metrics = m
	}
}

func WithAuditor(a Auditor) Option {
	return func(s *Syncer) {
		s.auditor = a
	}
}

// WithActorID sets created_by for synced nodes.
func WithActorID(id int64) Option {
	return func(s *Syncer) {
		s.actorID = id
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Syncer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithBreaker guards the source. While the breaker is open, syncs fail fast
// with ErrUpstreamUnavailable except for periodic probes.
func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Syncer) {
		s.breaker = b
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Syncer) {
		s.now = now
	}
}

func New(src ChildSource, store NodeWriter, opts ...Option) *Syncer {
	s := &Syncer{
		source:  src,
		store:   store,
		actorID: 1,
		timeout: DefaultTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// SyncChildren fetches the children of externalRef and inserts the ones not
// yet stored under localParentID, in one transaction. It returns the newly
// inserted nodes.
//
// Fetch failures return ErrUpstreamUnavailable. A uniqueness conflict means a
// concurrent sync won the race and is reported as zero inserts.
func (s *Syncer) SyncChildren(ctx context.Context, externalRef, localParentID int64) ([]*models.Node, error) {
	ctx, span := tracer.Start(ctx, "tree.sync_children")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("tree.external_ref", externalRef),
		attribute.Int64("tree.parent_id", localParentID),
	)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	start := time.Now()

	if s.breaker != nil && !s.breaker.Allow() {
		s.metrics.ObserveSync("circuit_open", 0, time.Since(start))
		span.SetStatus(codes.Error, "circuit open")
		return nil, fmt.Errorf("%w: circuit %s open", ErrUpstreamUnavailable, s.breaker.Name())
	}

	fetched, err := s.source.FetchChildren(ctx, externalRef)
	s.recordFetch(ctx, err)
	if err != nil {
		s.metrics.ObserveSync("upstream_error", 0, time.Since(start))
		span.SetStatus(codes.Error, "fetch failed")
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	nodes, err := s.newNodes(ctx, fetched, localParentID)
	if err != nil {
		s.metrics.ObserveSync("store_error", 0, time.Since(start))
		span.SetStatus(codes.Error, "lookup failed")
		return nil, err
	}
	if len(nodes) == 0 {
		s.metrics.ObserveSync("noop", 0, time.Since(start))
		return []*models.Node{}, nil
	}

	inserted, err := s.store.InsertNodes(ctx, nodes)
	if errors.Is(err, sentinel.ErrConflict) {
		s.logger.InfoContext(ctx, "children already synced by concurrent caller",
			"parent_id", localParentID,
			"external_ref", externalRef,
		)
		s.metrics.ObserveSync("noop", 0, time.Since(start))
		return []*models.Node{}, nil
	}
	if err != nil {
		s.metrics.ObserveSync("store_error", 0, time.Since(start))
		span.SetStatus(codes.Error, "insert failed")
		return nil, fmt.Errorf("insert synced children: %w", err)
	}

	span.SetAttributes(attribute.Int("tree.inserted", len(inserted)))
	if len(inserted) == 0 {
		s.metrics.ObserveSync("noop", 0, time.Since(start))
		return []*models.Node{}, nil
	}
	s.metrics.ObserveSync("synced", len(inserted), time.Since(start))
	s.logger.InfoContext(ctx, "synced children",
		"parent_id", localParentID,
		"external_ref", externalRef,
		"inserted", len(inserted),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	s.emit(ctx, localParentID, len(inserted))
	return inserted, nil
}

// recordFetch feeds the breaker. Only outage-like failures count against the
// source; a 404 or malformed payload still proves it is reachable.
func (s *Syncer) recordFetch(ctx context.Context, err error) {
	if s.breaker == nil {
		return
	}
	if err != nil && source.IsRetryable(err) {
		if _, change := s.breaker.RecordFailure(); change.Opened {
			s.logger.WarnContext(ctx, "source circuit opened",
				"breaker", s.breaker.Name(),
				"category", string(source.CategoryOf(err)),
			)
		}
		return
	}
	if _, change := s.breaker.RecordSuccess(); change.Closed {
		s.logger.InfoContext(ctx, "source circuit closed", "breaker", s.breaker.Name())
	}
}

func (s *Syncer) newNodes(ctx context.Context, fetched []source.Child, parentID int64) ([]*models.Node, error) {
	if len(fetched) == 0 {
		return nil, nil
	}
	ids := make([]int64, 0, len(fetched))
	for _, c := range fetched {
		ids = append(ids, c.ID)
	}
	existing, err := s.store.ExistingExternalIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("lookup synced children: %w", err)
	}

	now := s.now()
	seen := make(map[int64]struct{}, len(fetched))
	var nodes []*models.Node
	for _, c := range fetched {
		if _, ok := existing[c.ID]; ok {
			continue
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		n, err := models.NewSyncedNode(c.ID, c.Name, c.BirthYear, c.DeathYear, parentID, s.actorID, now)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping invalid source child",
				"parent_id", parentID,
				"external_id", c.ID,
				"error", err,
			)
			continue
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (s *Syncer) emit(ctx context.Context, parentID int64, count int) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Emit(ctx, audit.Event{
		Action:    audit.ActionNodesSynced,
		ActorID:   s.actorID,
		NodeID:    parentID,
		Count:     count,
		RequestID: requestcontext.RequestID(ctx),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", string(audit.ActionNodesSynced), "error", err)
	}
}
