package memory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "tradegraph/pkg/domain"
	audit "tradegraph/pkg/platform/audit"
)

func TestListByOrgKeepsAppendOrder(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	acme, globex := id.OrgID(uuid.New()), id.OrgID(uuid.New())

	for _, e := range []audit.Event{
		{OrgID: acme, Action: string(audit.EventCreditReserved)},
		{OrgID: globex, Action: string(audit.EventCreditsGranted)},
		{OrgID: acme, Action: string(audit.EventCreditCommitted)},
	} {
		require.NoError(t, store.Append(ctx, e))
	}

	events, err := store.ListByOrg(ctx, acme)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, string(audit.EventCreditReserved), events[0].Action)
	assert.Equal(t, string(audit.EventCreditCommitted), events[1].Action)
	assert.Equal(t, audit.EventCreditCommitted.Category(), events[1].Category)

	none, err := store.ListByOrg(ctx, id.OrgID(uuid.New()))
	require.NoError(t, err)
	assert.Empty(t, none)
}
