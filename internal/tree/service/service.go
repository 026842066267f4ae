// Package service is the tree query facade: children listings with on-demand
// sync, node detail, soft delete and restore, and lineage-aware search.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"atatek/internal/audit"
	"atatek/internal/platform/cache"
	"atatek/internal/tree/ancestry"
	"atatek/internal/tree/metrics"
	"atatek/internal/tree/models"
	"atatek/internal/tree/syncer"
	dErrors "atatek/pkg/domain-errors"
	"atatek/pkg/platform/sentinel"
	"atatek/pkg/requestcontext"
)

// DefaultChildrenTTL is how long a children listing stays cached.
const DefaultChildrenTTL = 600 * time.Second

var tracer = otel.Tracer("atatek/tree")

type NodeStore interface {
	FindByID(ctx context.Context, id int64) (*models.Node, error)
	FindDetail(ctx context.Context, id int64) (*models.NodeDetail, error)
	ListVisibleChildren(ctx context.Context, parentID int64) ([]*models.Node, error)
	SetDeleted(ctx context.Context, id int64, deleted bool, actorID int64, now time.Time) (*models.Node, error)
	SearchByName(ctx context.Context, query string) ([]*models.Node, error)
}

type ChildSyncer interface {
	SyncChildren(ctx context.Context, externalRef, localParentID int64) ([]*models.Node, error)
}

type AncestorResolver interface {
	AncestorsOf(ctx context.Context, id int64) ([]models.Ancestor, error)
}

type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is safe for concurrent use.
type Service struct {
	store       NodeStore
	syncer      ChildSyncer
	ancestors   AncestorResolver
	cache       *cache.Cache
	childrenTTL time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics
	auditor     Auditor
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditor(a Auditor) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

func WithChildrenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.childrenTTL = ttl
		}
	}
}

// New wires the facade. A nil syncer disables on-demand sync; a nil cache
// reads straight through to the store.
func New(store NodeStore, sync ChildSyncer, ancestors AncestorResolver, c *cache.Cache, opts ...Option) *Service {
	s := &Service{
		store:       store,
		syncer:      sync,
		ancestors:   ancestors,
		cache:       c,
		childrenTTL: DefaultChildrenTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// ListChildren returns the visible direct children of nodeID ordered by id.
// Every call first syncs the node's children from the external source; a
// failed sync is logged and the stored children are returned. A sync that
// inserts anything drops the cached listing before it is read.
func (s *Service) ListChildren(ctx context.Context, nodeID, userID int64) ([]models.Child, error) {
	ctx, span := tracer.Start(ctx, "tree.list_children", trace.WithAttributes(
		attribute.Int64("tree.node_id", nodeID),
		attribute.Int64("user.id", userID),
	))
	defer span.End()

	node, err := s.store.FindByID(ctx, nodeID)
	if err != nil {
		span.RecordError(err)
		return nil, s.translate(ctx, err, "list children")
	}
	key := cache.TreeChildrenKey(nodeID)
	if node.ExternalID != nil && s.syncer != nil {
		if inserted := s.syncBestEffort(ctx, node); inserted > 0 {
			span.SetAttributes(attribute.Int("tree.synced", inserted))
			if err := s.cache.Invalidate(ctx, key); err != nil {
				s.logger.WarnContext(ctx, "children cache invalidation failed",
					"node_id", nodeID,
					"error", err,
				)
			}
		}
	}

	children, err := cache.GetOrPopulate(ctx, s.cache, key, s.childrenTTL,
		func(ctx context.Context) ([]models.Child, bool, error) {
			return s.loadChildren(ctx, nodeID)
		})
	if err != nil {
		span.RecordError(err)
		return nil, s.translate(ctx, err, "list children")
	}
	if children == nil {
		children = []models.Child{}
	}
	return children, nil
}

func (s *Service) loadChildren(ctx context.Context, nodeID int64) ([]models.Child, bool, error) {
	nodes, err := s.store.ListVisibleChildren(ctx, nodeID)
	if err != nil {
		return nil, false, err
	}
	views := make([]models.Child, 0, len(nodes))
	for _, n := range nodes {
		views = append(views, models.ChildFromNode(n))
	}
	return views, len(views) > 0, nil
}

// syncBestEffort reports how many nodes the sync inserted.
func (s *Service) syncBestEffort(ctx context.Context, node *models.Node) int {
	inserted, err := s.syncer.SyncChildren(ctx, *node.ExternalID, node.ID)
	switch {
	case err == nil:
		return len(inserted)
	case errors.Is(err, syncer.ErrUpstreamUnavailable):
		s.logger.WarnContext(ctx, "children sync skipped, source unavailable",
			"node_id", node.ID,
			"external_id", *node.ExternalID,
			"error", err,
		)
	default:
		s.logger.ErrorContext(ctx, "children sync failed",
			"node_id", node.ID,
			"external_id", *node.ExternalID,
			"error", err,
		)
	}
	return 0
}

// GetNodeDetail reads a single node with its creator and last editor. It
// never syncs and never caches.
func (s *Service) GetNodeDetail(ctx context.Context, nodeID int64) (*models.NodeDetail, error) {
	ctx, span := tracer.Start(ctx, "tree.get_node", trace.WithAttributes(attribute.Int64("tree.node_id", nodeID)))
	defer span.End()

	detail, err := s.store.FindDetail(ctx, nodeID)
	if err != nil {
		span.RecordError(err)
		return nil, s.translate(ctx, err, "get node")
	}
	return detail, nil
}

// DeleteNode hides nodeID from listings and search. Its descendants are untouched.
func (s *Service) DeleteNode(ctx context.Context, nodeID int64) error {
	return s.setVisibility(ctx, nodeID, true)
}

// RestoreNode makes a deleted node visible again.
func (s *Service) RestoreNode(ctx context.Context, nodeID int64) error {
	return s.setVisibility(ctx, nodeID, false)
}

func (s *Service) setVisibility(ctx context.Context, nodeID int64, deleted bool) error {
	action := audit.ActionNodeRestored
	if deleted {
		action = audit.ActionNodeDeleted
	}
	ctx, span := tracer.Start(ctx, "tree."+string(action), trace.WithAttributes(attribute.Int64("tree.node_id", nodeID)))
	defer span.End()

	actorID := requestcontext.UserID(ctx)
	node, err := s.store.SetDeleted(ctx, nodeID, deleted, actorID, requestcontext.Now(ctx))
	if err != nil {
		span.RecordError(err)
		return s.translate(ctx, err, "update node")
	}

	if node.ParentID != nil {
		if err := s.cache.Invalidate(ctx, cache.TreeChildrenKey(*node.ParentID)); err != nil {
			s.logger.WarnContext(ctx, "children cache invalidation failed",
				"node_id", nodeID,
				"parent_id", *node.ParentID,
				"error", err,
			)
		}
	}

	if deleted {
		s.metrics.IncrementVisibilityChange("delete")
	} else {
		s.metrics.IncrementVisibilityChange("restore")
	}
	s.emit(ctx, audit.Event{
		Action:    action,
		ActorID:   actorID,
		NodeID:    nodeID,
		ParentID:  node.ParentID,
		RequestID: requestcontext.RequestID(ctx),
	})
	return nil
}

// SearchByName returns visible nodes whose name contains query, ignoring
// case, each with its ancestor chain. Roots are excluded. With
// ancestorFilter set, only nodes descending from that id are returned.
func (s *Service) SearchByName(ctx context.Context, query string, ancestorFilter *int64) ([]models.SearchResult, error) {
	ctx, span := tracer.Start(ctx, "tree.search")
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "query is required")
	}
	if ancestorFilter != nil {
		span.SetAttributes(attribute.Int64("tree.ancestor_filter", *ancestorFilter))
	}

	matches, err := s.store.SearchByName(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, s.translate(ctx, err, "search")
	}

	results := make([]models.SearchResult, 0, len(matches))
	for _, n := range matches {
		chain, err := s.ancestors.AncestorsOf(ctx, n.ID)
		if err != nil {
			span.RecordError(err)
			return nil, s.translate(ctx, err, "search")
		}
		if len(chain) == 0 {
			continue
		}
		if ancestorFilter != nil && !ancestry.Contains(chain, *ancestorFilter) {
			continue
		}
		results = append(results, models.SearchResult{
			ID:      n.ID,
			Name:    n.Name,
			Birth:   n.BirthYear,
			Death:   n.DeathYear,
			Parents: chain,
		})
	}
	span.SetAttributes(attribute.Int("tree.results", len(results)))
	return results, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", string(event.Action), "error", err)
	}
}

// translate maps store and cache failures onto coded domain errors. Only
// not-found is surfaced as such; everything else is a store failure.
func (s *Service) translate(ctx context.Context, err error, op string) error {
	var coded *dErrors.Error
	switch {
	case errors.As(err, &coded):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "node not found")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, op+" timed out")
	default:
		s.logger.ErrorContext(ctx, op+" failed", "error", err)
		return dErrors.Wrap(err, dErrors.CodeInternal, op+" failed")
	}
}
