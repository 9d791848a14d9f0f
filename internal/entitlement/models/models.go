package models

import (
	"time"

	id "tradegraph/pkg/domain"
)

// Organization is a subscribing customer.
type Organization struct {
	ID        id.OrgID  `json:"id"`
	Name      string    `json:"name"`
	Tier      Tier      `json:"tier"`
	SeatQuota int       `json:"seatQuota"`
	APIQuota  int       `json:"apiQuota"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EntryKind separates credit grants from consumption.
type EntryKind string

const (
	KindGrant EntryKind = "GRANT"
	KindUsage EntryKind = "USAGE"
)

// EntryState is the lifecycle of a ledger entry. USAGE entries start
// RESERVED and move exactly once to COMMITTED or RELEASED; GRANT entries
// are created COMMITTED.
type EntryState string

const (
	StateReserved  EntryState = "RESERVED"
	StateCommitted EntryState = "COMMITTED"
	StateReleased  EntryState = "RELEASED"
)

// CountsAgainstBalance reports whether a USAGE entry in this state consumes credits.
func (s EntryState) CountsAgainstBalance() bool {
	return s == StateReserved || s == StateCommitted
}

// LedgerEntry is one append-only row of the credit ledger. Entries are
// never deleted; only State and UpdatedAt change.
type LedgerEntry struct {
	ID         id.LedgerEntryID `json:"id"`
	OrgID      id.OrgID         `json:"organizationId"`
	CreditType CreditType       `json:"creditType"`
	Kind       EntryKind        `json:"kind"`
	Amount     int64            `json:"amount"`
	Operation  Operation        `json:"operation,omitempty"`
	State      EntryState       `json:"state"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

// Balance is the derived state of one credit pool.
type Balance struct {
	CreditType CreditType `json:"creditType"`
	Granted    int64      `json:"granted"`
	Committed  int64      `json:"committed"`
	Reserved   int64      `json:"reserved"`
}

// Available is granted minus everything reserved or committed.
func (b Balance) Available() int64 {
	return b.Granted - b.Committed - b.Reserved
}

// Apply folds one entry into the balance.
func (b *Balance) Apply(e *LedgerEntry) {
	switch {
	case e.Kind == KindGrant:
		b.Granted += e.Amount
	case e.State == StateCommitted:
		b.Committed += e.Amount
	case e.State == StateReserved:
		b.Reserved += e.Amount
	}
}
