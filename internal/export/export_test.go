package export

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	entmodels "tradegraph/internal/entitlement/models"
	"tradegraph/internal/search/executor"
	"tradegraph/internal/search/index/memory"
	"tradegraph/internal/search/models"
	"tradegraph/internal/search/ports"
	"tradegraph/internal/search/ports/mocks"
	"tradegraph/internal/search/searchtest"
	dErrors "tradegraph/pkg/domain-errors"
)

type ExportSuite struct {
	suite.Suite
	index    *memory.Index
	exporter *Exporter
	ctx      context.Context
}

func TestExportSuite(t *testing.T) {
	suite.Run(t, new(ExportSuite))
}

func (s *ExportSuite) SetupTest() {
	s.index = memory.New(searchtest.Shipments(1200)...)
	s.exporter = s.exporterOver(s.index, WithChunkSize(128))
	s.ctx = context.Background()
}

// exporterOver pages through an executor, the way the server wires it.
func (s *ExportSuite) exporterOver(index ports.Index, opts ...Option) *Exporter {
	exec, err := executor.New(index,
		executor.WithCallTimeout(50*time.Millisecond),
		executor.WithRetry(2, 0),
		executor.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	s.Require().NoError(err)
	exporter, err := New(exec, opts...)
	s.Require().NoError(err)
	return exporter
}

func (s *ExportSuite) csvRows(buf *bytes.Buffer) [][]string {
	records, err := csv.NewReader(buf).ReadAll()
	s.Require().NoError(err)
	s.Require().NotEmpty(records)
	s.Equal(csvHeader, records[0])
	return records[1:]
}

func (s *ExportSuite) TestStarterIsCappedAt500() {
	var (
		buf  bytes.Buffer
		seen Plan
	)
	plan, err := s.exporter.Export(s.ctx, Request{
		Query:       searchtest.Query(),
		Tier:        entmodels.TierStarter,
		Format:      FormatCSV,
		BeforeWrite: func(p Plan) { seen = p },
	}, &buf)
	s.Require().NoError(err)

	s.Equal(1200, plan.Total)
	s.Equal(500, plan.Rows)
	s.True(plan.Truncated)
	s.True(seen.Truncated)
	s.Equal(500, seen.Rows)
	s.Len(s.csvRows(&buf), 500)
}

func (s *ExportSuite) TestRowsFollowSortOrder() {
	q := searchtest.Query()
	q.SortBy = models.SortValueUSD
	q.SortOrder = models.SortAsc
	q.PageSize = 7
	q.Page = 3

	var buf bytes.Buffer
	_, err := s.exporter.Export(s.ctx, Request{Query: q, Tier: entmodels.TierPro, Format: FormatCSV}, &buf)
	s.Require().NoError(err)
	rows := s.csvRows(&buf)
	s.Len(rows, 1200)

	page, err := s.index.Query(s.ctx, q, models.Window{Offset: 0, Limit: 1200})
	s.Require().NoError(err)
	for i, row := range rows {
		s.Require().Equal(page.Items[i].ID, row[0], "row %d", i)
	}
}

func (s *ExportSuite) TestUnderCapIsNotTruncated() {
	q := searchtest.Query()
	q.TransportMode = models.TransportAir

	var buf bytes.Buffer
	plan, err := s.exporter.Export(s.ctx, Request{Query: q, Tier: entmodels.TierGov, Format: FormatNDJSON}, &buf)
	s.Require().NoError(err)
	s.False(plan.Truncated)
	s.Equal(plan.Total, plan.Rows)

	lines := 0
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var sh models.Shipment
		s.Require().NoError(json.Unmarshal(sc.Bytes(), &sh))
		s.Equal(models.TransportAir, sh.TransportMode)
		lines++
	}
	s.Equal(plan.Rows, lines)
}

func (s *ExportSuite) TestUnknownTierIsRefused() {
	var buf bytes.Buffer
	_, err := s.exporter.Export(s.ctx, Request{Query: searchtest.Query(), Tier: entmodels.TierUnknown}, &buf)
	s.True(dErrors.HasCode(err, dErrors.CodeInsufficientTier))
	s.Zero(buf.Len())
}

func (s *ExportSuite) TestIndexFailure() {
	ctrl := gomock.NewController(s.T())
	index := mocks.NewMockIndex(ctrl)
	index.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("connection refused")).Times(2)

	var buf bytes.Buffer
	_, err := s.exporterOver(index).Export(s.ctx, Request{Query: searchtest.Query(), Tier: entmodels.TierPro}, &buf)
	s.True(dErrors.HasCode(err, dErrors.CodeUpstreamUnavailable))
	s.Zero(buf.Len())
}

// stalledIndex never answers; only the caller's deadline ends a query.
type stalledIndex struct {
	ports.Index
	calls atomic.Int32
}

func (i *stalledIndex) Query(ctx context.Context, _ *models.SearchQuery, _ models.Window) (*models.Page, error) {
	i.calls.Add(1)
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *ExportSuite) TestStalledIndexIsBounded() {
	index := &stalledIndex{}
	start := time.Now()

	var buf bytes.Buffer
	_, err := s.exporterOver(index).Export(context.Background(), Request{Query: searchtest.Query(), Tier: entmodels.TierPro}, &buf)

	s.True(dErrors.HasCode(err, dErrors.CodeUpstreamUnavailable), "got %v", err)
	s.Equal(int32(2), index.calls.Load())
	s.Less(time.Since(start), 2*time.Second)
	s.Zero(buf.Len())
}

func (s *ExportSuite) TestFailureAfterFirstChunkReportsRowsWritten() {
	ctrl := gomock.NewController(s.T())
	index := mocks.NewMockIndex(ctrl)
	first, err := s.index.Query(s.ctx, searchtest.Query(), models.Window{Offset: 0, Limit: 100})
	s.Require().NoError(err)
	gomock.InOrder(
		index.EXPECT().Query(gomock.Any(), gomock.Any(), models.Window{Offset: 0, Limit: 100}).Return(first, nil),
		index.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, errors.New("connection reset")).Times(2),
	)

	var buf bytes.Buffer
	plan, err := s.exporterOver(index, WithChunkSize(100)).Export(s.ctx, Request{
		Query:  searchtest.Query(),
		Tier:   entmodels.TierStarter,
		Format: FormatCSV,
	}, &buf)
	s.True(dErrors.HasCode(err, dErrors.CodeUpstreamUnavailable))
	s.Require().NotNil(plan)
	s.Equal(100, plan.Rows)
	s.Len(s.csvRows(&buf), 100)
}

func (s *ExportSuite) TestParseFormat() {
	f, err := ParseFormat("")
	s.Require().NoError(err)
	s.Equal(FormatCSV, f)
	f, err = ParseFormat("NDJSON")
	s.Require().NoError(err)
	s.Equal(FormatNDJSON, f)
	_, err = ParseFormat("xlsx")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}
