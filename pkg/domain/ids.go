package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "tradegraph/pkg/domain-errors"
)

// OrgID identifies a subscribing organization.
type OrgID uuid.UUID

// LedgerEntryID identifies a single credit ledger entry.
type LedgerEntryID uuid.UUID

// ParseOrgID constructs an OrgID from external input.
func ParseOrgID(s string) (OrgID, error) {
	u, err := parseUUID(s, "organization id")
	return OrgID(u), err
}

// ParseLedgerEntryID constructs a LedgerEntryID from external input.
func ParseLedgerEntryID(s string) (LedgerEntryID, error) {
	u, err := parseUUID(s, "ledger entry id")
	return LedgerEntryID(u), err
}

// NewLedgerEntryID returns a fresh random entry id.
func NewLedgerEntryID() LedgerEntryID {
	return LedgerEntryID(uuid.New())
}

func (id OrgID) String() string         { return uuid.UUID(id).String() }
func (id OrgID) IsNil() bool            { return uuid.UUID(id) == uuid.Nil }
func (id LedgerEntryID) String() string { return uuid.UUID(id).String() }
func (id LedgerEntryID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id OrgID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *OrgID) UnmarshalText(b []byte) error {
	parsed, err := ParseOrgID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id LedgerEntryID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *LedgerEntryID) UnmarshalText(b []byte) error {
	parsed, err := ParseLedgerEntryID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func parseUUID(s, name string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, name+" is required")
	}
	if len(s) > 64 {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+name)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+name)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, name+" cannot be nil")
	}
	return u, nil
}
