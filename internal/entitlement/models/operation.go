package models

import dErrors "tradegraph/pkg/domain-errors"

// CreditType names a metered credit pool. Each pool has its own balance.
type CreditType string

const (
	CreditComplianceCheck CreditType = "COMPLIANCE_CHECK"
	CreditBatchCheck      CreditType = "BATCH_CHECK"
	CreditPEPCheck        CreditType = "PEP_CHECK"
	CreditAdverseMedia    CreditType = "ADVERSE_MEDIA"
)

// CreditTypes lists every pool in display order.
var CreditTypes = []CreditType{CreditComplianceCheck, CreditBatchCheck, CreditPEPCheck, CreditAdverseMedia}

// IsValid checks if the credit type is one of the supported enum values.
func (c CreditType) IsValid() bool {
	switch c {
	case CreditComplianceCheck, CreditBatchCheck, CreditPEPCheck, CreditAdverseMedia:
		return true
	}
	return false
}

func (c CreditType) String() string { return string(c) }

// ParseCreditType validates an incoming credit type.
func ParseCreditType(s string) (CreditType, error) {
	c := CreditType(s)
	if !c.IsValid() {
		return "", dErrors.Validation("creditType", "unknown credit type")
	}
	return c, nil
}

// Operation names a guarded entry point.
type Operation string

const (
	OpSearch               Operation = "search"
	OpExport               Operation = "export"
	OpDutyRate             Operation = "duty_rate"
	OpLandedCost           Operation = "landed_cost"
	OpComplianceCheck      Operation = "compliance_check"
	OpBatchComplianceCheck Operation = "batch_compliance_check"
	OpPEPCheck             Operation = "pep_check"
	OpAdverseMediaCheck    Operation = "adverse_media_check"
)

// Policy is the entitlement rule for one operation. An empty CreditType
// means the operation is tier-gated but not metered.
type Policy struct {
	MinTier    Tier
	CreditType CreditType
	UnitCost   int64
}

// Metered reports whether the operation consumes credits.
func (p Policy) Metered() bool {
	return p.CreditType != "" && p.UnitCost > 0
}

// Policies is the operation table.
var Policies = map[Operation]Policy{
	OpSearch:               {MinTier: TierStarter},
	OpExport:               {MinTier: TierStarter},
	OpDutyRate:             {MinTier: TierStarter},
	OpLandedCost:           {MinTier: TierPro},
	OpComplianceCheck:      {MinTier: TierPro, CreditType: CreditComplianceCheck, UnitCost: 1},
	OpBatchComplianceCheck: {MinTier: TierEnterprise, CreditType: CreditBatchCheck, UnitCost: 1},
	OpPEPCheck:             {MinTier: TierEnterprise, CreditType: CreditPEPCheck, UnitCost: 1},
	OpAdverseMediaCheck:    {MinTier: TierEnterprise, CreditType: CreditAdverseMedia, UnitCost: 1},
}
