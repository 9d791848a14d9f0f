//go:build integration

package outbox_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "tradegraph/pkg/domain"
	"tradegraph/pkg/platform/audit"
	"tradegraph/pkg/platform/audit/outbox"
	auditpostgres "tradegraph/pkg/platform/audit/store/postgres"
	"tradegraph/pkg/testutil/containers"
)

type recordingProducer struct {
	mu   sync.Mutex
	keys []string
	fail error
}

func (p *recordingProducer) Produce(_ context.Context, key, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.keys = append(p.keys, string(key))
	return nil
}

// =============================================================================
// Outbox relay
// =============================================================================

type RelaySuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *auditpostgres.Store
	orgID id.OrgID
}

func TestRelaySuite(t *testing.T) {
	suite.Run(t, new(RelaySuite))
}

func (s *RelaySuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = auditpostgres.New(s.pg.DB)
}

func (s *RelaySuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(context.Background(), "audit_outbox"))
	s.orgID = id.OrgID(uuid.New())
	for _, action := range []audit.AuditEvent{audit.EventCreditReserved, audit.EventCreditCommitted, audit.EventCreditsGranted} {
		s.Require().NoError(s.store.Append(context.Background(), audit.Event{
			OrgID:     s.orgID,
			Action:    string(action),
			Timestamp: time.Now(),
		}))
	}
}

func (s *RelaySuite) unpublished() int {
	var n int
	s.Require().NoError(s.pg.DB.QueryRow(`SELECT count(*) FROM audit_outbox WHERE published_at IS NULL`).Scan(&n))
	return n
}

func (s *RelaySuite) TestPublishesInBatchesAndMarksRows() {
	producer := &recordingProducer{}
	relay := outbox.NewRelay(s.pg.DB, producer, outbox.WithBatchSize(2))

	n, err := relay.PublishBatch(context.Background())
	s.Require().NoError(err)
	s.Equal(2, n)
	s.Equal(1, s.unpublished())

	n, err = relay.PublishBatch(context.Background())
	s.Require().NoError(err)
	s.Equal(1, n)

	n, err = relay.PublishBatch(context.Background())
	s.Require().NoError(err)
	s.Zero(n, "nothing left to relay")

	s.Len(producer.keys, 3)
	for _, k := range producer.keys {
		s.Equal(s.orgID.String(), k, "records are keyed by organization")
	}
}

func (s *RelaySuite) TestProducerFailureKeepsRowsForRetry() {
	producer := &recordingProducer{fail: errors.New("broker unavailable")}
	relay := outbox.NewRelay(s.pg.DB, producer)

	_, err := relay.PublishBatch(context.Background())
	s.Require().Error(err)
	s.Equal(3, s.unpublished())

	producer.fail = nil
	n, err := relay.PublishBatch(context.Background())
	s.Require().NoError(err)
	s.Equal(3, n)
	s.Zero(s.unpublished())
}

func (s *RelaySuite) TestRunStopsOnCancel() {
	producer := &recordingProducer{}
	relay := outbox.NewRelay(s.pg.DB, producer, outbox.WithInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	s.Eventually(func() bool { return s.unpublished() == 0 }, 5*time.Second, 20*time.Millisecond)
	cancel()
	s.ErrorIs(<-done, context.Canceled)
}
