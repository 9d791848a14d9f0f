package organization

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"tradegraph/internal/entitlement/models"
	id "tradegraph/pkg/domain"
	"tradegraph/pkg/platform/sentinel"
)

type OrganizationStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestOrganizationStoreSuite(t *testing.T) {
	suite.Run(t, new(OrganizationStoreSuite))
}

func (s *OrganizationStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func newOrganization(tier models.Tier) *models.Organization {
	now := time.Now()
	return &models.Organization{
		ID:        id.OrgID(uuid.New()),
		Name:      "Acme Imports",
		Tier:      tier,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *OrganizationStoreSuite) TestCreateAndFind() {
	org := newOrganization(models.TierPro)
	s.Require().NoError(s.store.Create(s.ctx, org))

	found, err := s.store.FindByID(s.ctx, org.ID)
	s.Require().NoError(err)
	s.Equal(org.Name, found.Name)
	s.Equal(models.TierPro, found.Tier)

	s.Run("duplicate id conflicts", func() {
		s.ErrorIs(s.store.Create(s.ctx, org), sentinel.ErrConflict)
	})

	s.Run("returned copy does not alias the store", func() {
		found.Tier = models.TierGov
		again, err := s.store.FindByID(s.ctx, org.ID)
		s.Require().NoError(err)
		s.Equal(models.TierPro, again.Tier)
	})
}

func (s *OrganizationStoreSuite) TestUpdateTier() {
	org := newOrganization(models.TierStarter)
	s.Require().NoError(s.store.Create(s.ctx, org))
	s.Require().NoError(s.store.UpdateTier(s.ctx, org.ID, models.TierEnterprise))

	found, err := s.store.FindByID(s.ctx, org.ID)
	s.Require().NoError(err)
	s.Equal(models.TierEnterprise, found.Tier)

	s.ErrorIs(s.store.UpdateTier(s.ctx, id.OrgID(uuid.New()), models.TierPro), sentinel.ErrNotFound)
}
