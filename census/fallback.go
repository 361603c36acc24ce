package census

import "github.com/shopspring/decimal"

// Fallback returns the sample table served when no census source is reachable.
func Fallback() Table {
	t := Table{
		{ID: NoID, PlanSponsor: "X", Carrier: "A", MemberStatus: "Active", Value: decimal.NewNullDecimal(decimal.NewFromInt(10))},
		{ID: NoID, PlanSponsor: "Y", Carrier: "A", MemberStatus: "Inactive", Value: decimal.NewNullDecimal(decimal.NewFromInt(20))},
		{ID: NoID, PlanSponsor: "X", Carrier: "B", MemberStatus: "Active", Value: decimal.NewNullDecimal(decimal.NewFromInt(30))},
		{ID: NoID, PlanSponsor: "Z", Carrier: "B", MemberStatus: "Inactive", Value: decimal.NewNullDecimal(decimal.NewFromInt(40))},
	}
	return AssignIDs(t)
}
