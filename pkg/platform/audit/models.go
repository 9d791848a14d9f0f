package audit

import (
	"context"
	"time"

	id "tradegraph/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryBilling covers credit movements that must be reconstructable
	// for invoicing and disputes.
	CategoryBilling EventCategory = "billing"

	// CategorySecurity covers denied access: tier refusals, admin token failures.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity useful for debugging.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category   EventCategory `json:"category"`
	Timestamp  time.Time     `json:"timestamp"`
	OrgID      id.OrgID      `json:"organizationId"`
	Action     string        `json:"action"`
	Operation  string        `json:"operation,omitempty"`
	CreditType string        `json:"creditType,omitempty"`
	Amount     int64         `json:"amount,omitempty"`
	EntryID    string        `json:"entryId,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	RequestID  string        `json:"requestId,omitempty"`
	// ActorID is set when someone other than the organization acted, such
	// as an administrator granting credits.
	ActorID string `json:"actorId,omitempty"`
}

type AuditEvent string

const (
	EventCreditsGranted     AuditEvent = "credits_granted"
	EventCreditReserved     AuditEvent = "credit_reserved"
	EventCreditCommitted    AuditEvent = "credit_committed"
	EventCreditReleased     AuditEvent = "credit_released"
	EventQuotaExceeded      AuditEvent = "quota_exceeded"
	EventTierDenied         AuditEvent = "tier_denied"
	EventOrgCreated         AuditEvent = "organization_created"
	EventOrgTierChanged     AuditEvent = "organization_tier_changed"
	EventExportTruncated    AuditEvent = "export_truncated"
	EventScreeningPerformed AuditEvent = "screening_performed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventCreditsGranted:  CategoryBilling,
	EventCreditReserved:  CategoryBilling,
	EventCreditCommitted: CategoryBilling,
	EventCreditReleased:  CategoryBilling,
	EventOrgTierChanged:  CategoryBilling,

	EventQuotaExceeded: CategorySecurity,
	EventTierDenied:    CategorySecurity,

	EventOrgCreated:         CategoryOperations,
	EventExportTruncated:    CategoryOperations,
	EventScreeningPerformed: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByOrg(ctx context.Context, orgID id.OrgID) ([]Event, error)
}
