package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"atatek/internal/audit"
	treemetrics "atatek/internal/tree/metrics"
	"atatek/internal/tree/models"
	"atatek/internal/tree/source"
	"atatek/internal/tree/store"
	"atatek/internal/tree/syncer/mocks"
	"atatek/pkg/platform/circuit"
	"atatek/pkg/platform/sentinel"
)

//go:generate mockgen -source=syncer.go -destination=mocks/mocks.go -package=mocks ChildSource,NodeWriter,Auditor

type SyncerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	source  *mocks.MockChildSource
	writer  *mocks.MockNodeWriter
	auditor *mocks.MockAuditor
	metrics *treemetrics.Metrics
	now     time.Time
}

func TestSyncerSuite(t *testing.T) {
	suite.Run(t, new(SyncerSuite))
}

func (s *SyncerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.source = mocks.NewMockChildSource(s.ctrl)
	s.writer = mocks.NewMockNodeWriter(s.ctrl)
	s.auditor = mocks.NewMockAuditor(s.ctrl)
	s.metrics = treemetrics.New(prometheus.NewRegistry())
	s.now = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
}

func (s *SyncerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *SyncerSuite) newMocked() *Syncer {
	return New(s.source, s.writer,
		WithMetrics(s.metrics),
		WithAuditor(s.auditor),
		WithClock(func() time.Time { return s.now }),
	)
}

func intp(v int) *int { return &v }

// staticSource always returns the same payload.
type staticSource struct {
	children []source.Child
}

func (f staticSource) FetchChildren(context.Context, int64) ([]source.Child, error) {
	return f.children, nil
}

func seededStore(s *SyncerSuite) *store.InMemoryStore {
	st := store.NewInMemory()
	ext := int64(140)
	_, err := st.Seed(models.Node{ID: 14, Name: "Parent", ExternalID: &ext})
	s.Require().NoError(err)
	return st
}

func (s *SyncerSuite) TestUnknownBirthYearBecomesNull() {
	st := seededStore(s)
	sy := New(staticSource{children: []source.Child{{ID: 5, Name: "X", BirthYear: intp(0)}}}, st)

	inserted, err := sy.SyncChildren(context.Background(), 140, 14)
	s.Require().NoError(err)
	s.Require().Len(inserted, 1)

	n := inserted[0]
	s.Equal("X", n.Name)
	s.Nil(n.BirthYear)
	s.Nil(n.DeathYear)
	s.Require().NotNil(n.ParentID)
	s.Equal(int64(14), *n.ParentID)
	s.Equal(int64(5), *n.ExternalID)
	s.False(n.IsDeleted)
	s.Equal(int64(1), n.CreatedBy)
}

func (s *SyncerSuite) TestSyncIsIdempotent() {
	st := seededStore(s)
	payload := staticSource{children: []source.Child{
		{ID: 5, Name: "X", BirthYear: intp(1901)},
		{ID: 6, Name: "Y", DeathYear: intp(1970)},
		{ID: 6, Name: "Y"},
	}}
	sy := New(payload, st, WithMetrics(s.metrics))

	first, err := sy.SyncChildren(context.Background(), 140, 14)
	s.Require().NoError(err)
	s.Len(first, 2)

	second, err := sy.SyncChildren(context.Background(), 140, 14)
	s.Require().NoError(err)
	s.Empty(second)

	s.Equal(3, st.Count())
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.SyncOutcomes.WithLabelValues("synced")))
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.SyncOutcomes.WithLabelValues("noop")))
	s.Equal(float64(2), testutil.ToFloat64(s.metrics.NodesInserted))
}

func (s *SyncerSuite) TestConcurrentSyncsKeepExternalIDsUnique() {
	st := seededStore(s)
	payload := staticSource{children: []source.Child{{ID: 5, Name: "X"}, {ID: 6, Name: "Y"}, {ID: 7, Name: "Z"}}}
	sy := New(payload, st)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sy.SyncChildren(context.Background(), 140, 14)
			s.NoError(err)
		}()
	}
	wg.Wait()

	s.Equal(4, st.Count())
	children, err := st.ListVisibleChildren(context.Background(), 14)
	s.Require().NoError(err)
	s.Len(children, 3)
}

func (s *SyncerSuite) TestFetchFailureWritesNothing() {
	upstream := &source.SourceError{Category: source.ErrorProviderOutage, Ref: 140, Message: "status 502"}
	s.source.EXPECT().FetchChildren(gomock.Any(), int64(140)).Return(nil, upstream)

	inserted, err := s.newMocked().SyncChildren(context.Background(), 140, 14)
	s.Nil(inserted)
	s.ErrorIs(err, ErrUpstreamUnavailable)
	s.Equal(source.ErrorProviderOutage, source.CategoryOf(err))
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.SyncOutcomes.WithLabelValues("upstream_error")))
}

func (s *SyncerSuite) TestFetchRunsUnderTimeout() {
	s.source.EXPECT().FetchChildren(gomock.Any(), int64(1)).DoAndReturn(
		func(ctx context.Context, _ int64) ([]source.Child, error) {
			deadline, ok := ctx.Deadline()
			s.True(ok)
			s.WithinDuration(time.Now().Add(DefaultTimeout), deadline, time.Second)
			return nil, nil
		})

	inserted, err := s.newMocked().SyncChildren(context.Background(), 1, 2)
	s.Require().NoError(err)
	s.Empty(inserted)
}

func (s *SyncerSuite) TestOnlyUnknownExternalIDsAreInserted() {
	s.source.EXPECT().FetchChildren(gomock.Any(), int64(140)).Return([]source.Child{
		{ID: 5, Name: "Known"},
		{ID: 6, Name: "New"},
	}, nil)
	s.writer.EXPECT().ExistingExternalIDs(gomock.Any(), []int64{5, 6}).
		Return(map[int64]struct{}{5: {}}, nil)
	s.writer.EXPECT().InsertNodes(gomock.Any(), gomock.Len(1)).DoAndReturn(
		func(_ context.Context, nodes []*models.Node) ([]*models.Node, error) {
			s.Equal("New", nodes[0].Name)
			s.Equal(s.now, nodes[0].CreatedAt)
			saved := *nodes[0]
			saved.ID = 99
			return []*models.Node{&saved}, nil
		})
	s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, e audit.Event) error {
			s.Equal(audit.ActionNodesSynced, e.Action)
			s.Equal(int64(14), e.NodeID)
			s.Equal(1, e.Count)
			return nil
		})

	inserted, err := s.newMocked().SyncChildren(context.Background(), 140, 14)
	s.Require().NoError(err)
	s.Require().Len(inserted, 1)
	s.Equal(int64(99), inserted[0].ID)
}

func (s *SyncerSuite) TestConflictIsTreatedAsAlreadySynced() {
	s.source.EXPECT().FetchChildren(gomock.Any(), gomock.Any()).Return([]source.Child{{ID: 5, Name: "X"}}, nil)
	s.writer.EXPECT().ExistingExternalIDs(gomock.Any(), gomock.Any()).Return(map[int64]struct{}{}, nil)
	s.writer.EXPECT().InsertNodes(gomock.Any(), gomock.Any()).
		Return(nil, errors.Join(sentinel.ErrConflict, errors.New("duplicate key")))

	inserted, err := s.newMocked().SyncChildren(context.Background(), 140, 14)
	s.Require().NoError(err)
	s.Empty(inserted)
}

func (s *SyncerSuite) TestStoreFailureIsSurfaced() {
	boom := errors.New("connection refused")
	s.source.EXPECT().FetchChildren(gomock.Any(), gomock.Any()).Return([]source.Child{{ID: 5, Name: "X"}}, nil)
	s.writer.EXPECT().ExistingExternalIDs(gomock.Any(), gomock.Any()).Return(map[int64]struct{}{}, nil)
	s.writer.EXPECT().InsertNodes(gomock.Any(), gomock.Any()).Return(nil, boom)

	_, err := s.newMocked().SyncChildren(context.Background(), 140, 14)
	s.ErrorIs(err, boom)
	s.NotErrorIs(err, ErrUpstreamUnavailable)
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.SyncOutcomes.WithLabelValues("store_error")))
}

func (s *SyncerSuite) TestInvalidChildrenAreSkipped() {
	s.source.EXPECT().FetchChildren(gomock.Any(), gomock.Any()).Return([]source.Child{
		{ID: 5, Name: "   "},
		{ID: -1, Name: "Negative"},
	}, nil)
	s.writer.EXPECT().ExistingExternalIDs(gomock.Any(), gomock.Any()).Return(map[int64]struct{}{}, nil)

	inserted, err := s.newMocked().SyncChildren(context.Background(), 140, 14)
	s.Require().NoError(err)
	s.Empty(inserted)
}

func (s *SyncerSuite) TestAuditFailureDoesNotFailSync() {
	st := seededStore(s)
	s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("queue full"))
	sy := New(staticSource{children: []source.Child{{ID: 5, Name: "X"}}}, st, WithAuditor(s.auditor))

	inserted, err := sy.SyncChildren(context.Background(), 140, 14)
	s.Require().NoError(err)
	s.Len(inserted, 1)
}

func (s *SyncerSuite) TestOpenBreakerSkipsSourceUntilProbe() {
	now := s.now
	breaker := circuit.New("tree-source",
		circuit.WithFailureThreshold(2),
		circuit.WithSuccessThreshold(1),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return now }),
	)
	sy := New(s.source, s.writer, WithMetrics(s.metrics), WithBreaker(breaker))
	outage := &source.SourceError{Category: source.ErrorProviderOutage, Ref: 140, Message: "status 503", Retryable: true}

	s.source.EXPECT().FetchChildren(gomock.Any(), int64(140)).Return(nil, outage).Times(2)
	for range 2 {
		_, err := sy.SyncChildren(context.Background(), 140, 14)
		s.ErrorIs(err, ErrUpstreamUnavailable)
	}
	s.True(breaker.IsOpen())

	_, err := sy.SyncChildren(context.Background(), 140, 14)
	s.ErrorIs(err, ErrUpstreamUnavailable)
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.SyncOutcomes.WithLabelValues("circuit_open")))

	now = now.Add(time.Minute)
	s.source.EXPECT().FetchChildren(gomock.Any(), int64(140)).Return(nil, nil)
	_, err = sy.SyncChildren(context.Background(), 140, 14)
	s.Require().NoError(err)
	s.False(breaker.IsOpen())
}

func (s *SyncerSuite) TestNotFoundDoesNotTripBreaker() {
	breaker := circuit.New("tree-source", circuit.WithFailureThreshold(1))
	sy := New(s.source, s.writer, WithBreaker(breaker))
	missing := &source.SourceError{Category: source.ErrorNotFound, Ref: 140, Message: "status 404"}
	s.source.EXPECT().FetchChildren(gomock.Any(), int64(140)).Return(nil, missing)

	_, err := sy.SyncChildren(context.Background(), 140, 14)
	s.ErrorIs(err, ErrUpstreamUnavailable)
	s.False(breaker.IsOpen())
}
