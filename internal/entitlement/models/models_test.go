package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierOrdering(t *testing.T) {
	ordered := []Tier{TierStarter, TierPro, TierEnterprise, TierGov}
	for i, have := range ordered {
		for j, need := range ordered {
			assert.Equal(t, i >= j, have.Satisfies(need), "%s satisfies %s", have, need)
		}
	}

	t.Run("chamber ranks with enterprise", func(t *testing.T) {
		assert.True(t, TierChamber.Satisfies(TierEnterprise))
		assert.True(t, TierEnterprise.Satisfies(TierChamber))
		assert.False(t, TierChamber.Satisfies(TierGov))
	})

	t.Run("unknown tiers fail closed", func(t *testing.T) {
		for _, unknown := range []Tier{TierUnknown, Tier(42)} {
			assert.False(t, unknown.Satisfies(TierStarter))
			assert.False(t, TierGov.Satisfies(unknown))
			assert.False(t, unknown.IsValid())
			assert.Equal(t, "UNKNOWN", unknown.String())
		}
	})
}

func TestParseTier(t *testing.T) {
	tier, err := ParseTier(" pro ")
	require.NoError(t, err)
	assert.Equal(t, TierPro, tier)

	_, err = ParseTier("gold")
	assert.Error(t, err)
	_, err = ParseTier("unknown")
	assert.Error(t, err, "the zero value is not a tier")
}

func TestTierText(t *testing.T) {
	var org struct {
		Tier Tier `json:"tier"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"tier":"chamber"}`), &org))
	assert.Equal(t, TierChamber, org.Tier)

	raw, err := json.Marshal(org)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tier":"CHAMBER"}`, string(raw))

	assert.Error(t, json.Unmarshal([]byte(`{"tier":"PLATINUM"}`), &org))
}

func TestPolicies(t *testing.T) {
	for op, p := range Policies {
		assert.True(t, p.MinTier.IsValid(), "%s has invalid tier", op)
		if p.CreditType != "" {
			assert.True(t, p.CreditType.IsValid(), "%s has invalid credit type", op)
			assert.True(t, p.Metered(), "%s should be metered", op)
		}
	}
	assert.False(t, Policies[OpSearch].Metered())
	assert.Equal(t, TierPro, Policies[OpLandedCost].MinTier)
}

func TestBalanceApply(t *testing.T) {
	var b Balance
	b.Apply(&LedgerEntry{Kind: KindGrant, Amount: 10, State: StateCommitted})
	b.Apply(&LedgerEntry{Kind: KindUsage, Amount: 3, State: StateCommitted})
	b.Apply(&LedgerEntry{Kind: KindUsage, Amount: 2, State: StateReserved})
	b.Apply(&LedgerEntry{Kind: KindUsage, Amount: 4, State: StateReleased})
	assert.Equal(t, int64(5), b.Available())
}
