//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"atatek/internal/profile/models"
	"atatek/internal/profile/store"
	treestore "atatek/internal/tree/store"
	"atatek/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	// users is owned by the tree schema migration.
	s.Require().NoError(treestore.NewPostgres(s.postgres.DB).Migrate(context.Background()))
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "tree", "users"))
	_, err := s.postgres.DB.ExecContext(ctx, `
		INSERT INTO users (id, first_name, last_name, phone, is_deleted) VALUES
			(7, 'Aigerim', 'Sadykova', '77011234567', FALSE),
			(8, 'Bolat', 'Omarov', '77019876543', TRUE)`)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestFindByIDSkipsDeletedUsers() {
	ctx := context.Background()

	p, err := s.store.FindByID(ctx, 7)
	s.Require().NoError(err)
	s.Equal("Aigerim", p.FirstName)
	s.Nil(p.PageID)
	s.False(p.IsVerified)

	_, err = s.store.FindByID(ctx, 8)
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUpdatesApplyToLiveUsersOnly() {
	ctx := context.Background()
	now := time.Now()
	middle := "Nurlanovna"

	s.Require().NoError(s.store.UpdateName(ctx, 7, models.NameUpdate{FirstName: "Dana", LastName: "Omarova", MiddleName: &middle}, now))
	s.Require().NoError(s.store.AssignPage(ctx, 7, 3, now))
	s.Require().NoError(s.store.MarkVerified(ctx, 7, now))

	p, err := s.store.FindByID(ctx, 7)
	s.Require().NoError(err)
	s.Equal("Dana", p.FirstName)
	s.Equal("Nurlanovna", *p.MiddleName)
	s.Equal(int64(3), *p.PageID)
	s.True(p.IsVerified)

	s.ErrorIs(s.store.MarkVerified(ctx, 8, now), store.ErrNotFound)
	s.ErrorIs(s.store.AssignPage(ctx, 404, 3, now), store.ErrNotFound)
}
