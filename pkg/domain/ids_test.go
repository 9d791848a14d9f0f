package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "tradegraph/pkg/domain-errors"
)

func TestParseIDs(t *testing.T) {
	parsers := map[string]func(string) error{
		"org": func(s string) error {
			_, err := ParseOrgID(s)
			return err
		},
		"ledger entry": func(s string) error {
			_, err := ParseLedgerEntryID(s)
			return err
		},
	}
	inputs := []struct {
		name  string
		input string
		ok    bool
	}{
		{"empty", "", false},
		{"blank", "   ", false},
		{"not a uuid", "acme-corp", false},
		{"nil uuid", uuid.Nil.String(), false},
		{"sql fragment", "'; DROP TABLE organizations;--", false},
		{"embedded nul", "550e8400\x00-e29b-41d4-a716-446655440000", false},
		{"oversized", strings.Repeat("f", 200), false},
		{"lowercase", "550e8400-e29b-41d4-a716-446655440000", true},
		{"uppercase", "550E8400-E29B-41D4-A716-446655440000", true},
	}
	for kind, parse := range parsers {
		for _, in := range inputs {
			t.Run(kind+"/"+in.name, func(t *testing.T) {
				err := parse(in.input)
				if in.ok {
					require.NoError(t, err)
					return
				}
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			})
		}
	}
}

func TestOrgIDInJSON(t *testing.T) {
	type payload struct {
		Org OrgID `json:"org_id"`
	}
	want := OrgID(uuid.New())

	raw, err := json.Marshal(payload{Org: want})
	require.NoError(t, err)
	assert.JSONEq(t, `{"org_id":"`+want.String()+`"}`, string(raw))

	var got payload
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, want, got.Org)

	err = json.Unmarshal([]byte(`{"org_id":"nope"}`), &got)
	assert.Error(t, err)
}

func TestNewLedgerEntryIDIsUnique(t *testing.T) {
	a, b := NewLedgerEntryID(), NewLedgerEntryID()
	assert.False(t, a.IsNil())
	assert.NotEqual(t, a, b)
}
