package census

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var decimalEqual = cmp.Comparer(func(a, b decimal.NullDecimal) bool {
	return a.Valid == b.Valid && a.Decimal.Equal(b.Decimal)
})

func row(id int64, sponsor, carrier, status string, value int64) Row {
	return Row{ID: id, PlanSponsor: sponsor, Carrier: carrier, MemberStatus: status, Value: decimal.NewNullDecimal(decimal.NewFromInt(value))}
}

func TestFallbackShape(t *testing.T) {
	fb := Fallback()
	require.Len(t, fb, 4)
	assert.Equal(t, []int64{0, 1, 2, 3}, fb.IDs())
	assert.Equal(t, "X", fb[0].PlanSponsor)
	assert.Equal(t, "B", fb[3].Carrier)
	assert.True(t, fb[2].Value.Decimal.Equal(decimal.NewFromInt(30)))
}

func TestFilterByCarrierKeepsOrder(t *testing.T) {
	got := Filter(Fallback(), Selection{Carrier: "A"})
	require.Len(t, got, 2)
	assert.Equal(t, []int64{0, 1}, got.IDs())
	for _, r := range got {
		assert.Equal(t, "A", r.Carrier)
	}
}

func TestFilterNoSelectionReturnsAll(t *testing.T) {
	fb := Fallback()
	got := Filter(fb, Selection{})
	if diff := cmp.Diff(fb, got, decimalEqual); diff != "" {
		t.Fatalf("unexpected table (-want +got):\n%s", diff)
	}
}

func TestFilterComposesWithAnd(t *testing.T) {
	got := Filter(Fallback(), Selection{PlanSponsor: "X", MemberStatus: "Active"})
	assert.Equal(t, []int64{0, 2}, got.IDs())

	got = Filter(Fallback(), Selection{PlanSponsor: "X", Carrier: "B", MemberStatus: "Active"})
	assert.Equal(t, []int64{2}, got.IDs())
}

func TestFilterIsExactAndCaseSensitive(t *testing.T) {
	assert.Empty(t, Filter(Fallback(), Selection{Carrier: "a"}))
	assert.Empty(t, Filter(Fallback(), Selection{MemberStatus: "Active "}))
}

func TestFilterSubsetProperty(t *testing.T) {
	master := Fallback()
	carriers := []string{"", "A", "B", "C"}
	sponsors := []string{"", "X", "Y", "Z"}
	statuses := []string{"", "Active", "Inactive"}
	for _, c := range carriers {
		for _, p := range sponsors {
			for _, s := range statuses {
				sel := Selection{Carrier: c, PlanSponsor: p, MemberStatus: s}
				got := Filter(master, sel)
				assert.LessOrEqual(t, len(got), len(master))

				var want []int64
				for _, r := range master {
					if (c == "" || r.Carrier == c) && (p == "" || r.PlanSponsor == p) && (s == "" || r.MemberStatus == s) {
						want = append(want, r.ID)
					}
				}
				if want == nil {
					want = []int64{}
				}
				assert.Equal(t, want, got.IDs(), "selection %+v", sel)
				assert.Equal(t, got.IDs(), Filter(master, sel).IDs(), "filter must be idempotent")
			}
		}
	}
}

func TestFilterDoesNotAliasMaster(t *testing.T) {
	master := Fallback()
	got := Filter(master, Selection{})
	got[0].PlanSponsor = "changed"
	assert.Equal(t, "X", master[0].PlanSponsor)
}

func TestOptionsDistinctSortedNonNull(t *testing.T) {
	tbl := append(Fallback(), row(4, "", "", "", 0), row(5, "W", "A", "Active", 1))
	opts := Options(tbl)
	assert.Equal(t, []string{"A", "B"}, opts.Carriers)
	assert.Equal(t, []string{"W", "X", "Y", "Z"}, opts.PlanSponsors)
	assert.Equal(t, []string{"Active", "Inactive"}, opts.Statuses)
}

func TestAssignIDsContinuesAfterHighest(t *testing.T) {
	tbl := Table{row(7, "X", "A", "", 0), row(NoID, "Y", "A", "", 0), row(NoID, "Z", "B", "", 0)}
	AssignIDs(tbl)
	assert.Equal(t, []int64{7, 8, 9}, tbl.IDs())
}

func TestColumnsIncludesExtras(t *testing.T) {
	tbl := Table{{ID: 0, Carrier: "A", Extra: map[string]string{"Region": "QC", "Group": "1"}}, {ID: 1, Extra: map[string]string{"Plan": "P"}}}
	assert.Equal(t, []string{ColumnID, ColumnCarrier, "Group", "Region", "Plan"}, Columns(tbl))
}

func TestColumnsSkipsUnpopulatedTypedColumns(t *testing.T) {
	assert.Equal(t,
		[]string{ColumnID, ColumnPlanSponsor, ColumnCarrier, ColumnMemberStatus, ColumnValue},
		Columns(Fallback()))

	born := time.Date(1980, 2, 3, 0, 0, 0, 0, time.UTC)
	tbl := Table{{ID: 0, PlanSponsor: "X"}, {ID: 1, BirthDate: &born}}
	assert.Equal(t, []string{ColumnID, ColumnPlanSponsor, ColumnBirthDate}, Columns(tbl))
	assert.Equal(t, []string{ColumnID}, Columns(nil))
}

func TestMergeByIDUnderActiveFilter(t *testing.T) {
	master := Table{{ID: 1, PlanSponsor: "a", Carrier: "A"}, {ID: 2, PlanSponsor: "b", Carrier: "B"}}
	edited := Table{{ID: 1, PlanSponsor: "z", Carrier: "A"}}

	got, report, err := Merge(master, edited, Selection{Carrier: "A"}, MergePolicy{})
	require.NoError(t, err)
	assert.Equal(t, MergeByID, report.Mode)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, []int64{1, 2}, got.IDs())
	assert.Equal(t, "z", got[0].PlanSponsor)
	assert.Equal(t, "b", got[1].PlanSponsor)
	assert.Equal(t, "a", master[0].PlanSponsor, "input must not be modified")
}

func TestMergeWithoutFilterReplacesWholesale(t *testing.T) {
	master := Table{{ID: 1}, {ID: 2}}
	edited := Table{{ID: 3}}

	got, report, err := Merge(master, edited, Selection{}, MergePolicy{})
	require.NoError(t, err)
	assert.Equal(t, MergeReplace, report.Mode)
	assert.Equal(t, []int64{3}, got.IDs())
}

func TestMergeIntoEmptyMasterAdopts(t *testing.T) {
	got, report, err := Merge(nil, Table{{ID: NoID, Carrier: "A"}}, Selection{Carrier: "A"}, MergePolicy{})
	require.NoError(t, err)
	assert.Equal(t, MergeAdopt, report.Mode)
	assert.Equal(t, []int64{0}, got.IDs())
}

func TestMergeSkipsUnknownRowsByDefault(t *testing.T) {
	master := Table{{ID: 1, Carrier: "A"}}
	edited := Table{{ID: 1, Carrier: "A"}, {ID: 9, Carrier: "A"}, {ID: NoID, Carrier: "A"}}

	got, report, err := Merge(master, edited, Selection{Carrier: "A"}, MergePolicy{})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, got.IDs())
	assert.Equal(t, []int64{9, NoID}, report.Skipped)
}

func TestMergeInsertPolicyAppendsRows(t *testing.T) {
	master := Table{{ID: 1, Carrier: "A"}, {ID: 4, Carrier: "B"}}
	edited := Table{{ID: 9, Carrier: "A"}, {ID: NoID, Carrier: "A"}}

	got, report, err := Merge(master, edited, Selection{Carrier: "A"}, MergePolicy{Insert: true})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Inserted)
	assert.Equal(t, []int64{1, 4, 9, 10}, got.IDs())
}

func TestMergePrunePolicyDeletesOnlyViewRows(t *testing.T) {
	master := Fallback()
	edited := Table{master[0].Clone()}

	got, report, err := Merge(master, edited, Selection{Carrier: "A"}, MergePolicy{Prune: true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Deleted)
	assert.Equal(t, []int64{0, 2, 3}, got.IDs())
}

func TestMergePruneJudgesPreEditValues(t *testing.T) {
	master := Fallback()
	edited := Table{master[0].Clone(), master[1].Clone()}
	edited[1].Carrier = "B"

	got, report, err := Merge(master, edited, Selection{Carrier: "A"}, MergePolicy{Prune: true})
	require.NoError(t, err)
	assert.Zero(t, report.Deleted)
	assert.Len(t, got, 4)
	assert.Equal(t, "B", got[1].Carrier)
}

func TestMergeRejectsDuplicateIDs(t *testing.T) {
	_, _, err := Merge(Fallback(), Table{{ID: 1}, {ID: 1}}, Selection{Carrier: "A"}, MergePolicy{})
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestRowCell(t *testing.T) {
	r := row(3, "X", "A", "Active", 10)
	assert.Equal(t, "3", r.Cell(ColumnID))
	assert.Equal(t, "10", r.Cell(ColumnValue))
	assert.Equal(t, "", r.Cell(ColumnBirthDate))
	assert.Equal(t, "", r.Cell("Unknown"))

	r.Value = decimal.NullDecimal{}
	assert.Equal(t, "", r.Cell(ColumnValue), "null values render blank")
}

func TestRowUnmarshalDefaultsToNoID(t *testing.T) {
	var tbl Table
	require.NoError(t, json.Unmarshal([]byte(`[
		{"PlanSponsor":"NEW","Carrier":"A"},
		{"ID":null,"Value":""},
		{"ID":3,"Value":"12.50"},
		{"ID":0,"Value":7},
		{"Value":null}
	]`), &tbl))
	require.Len(t, tbl, 5)
	assert.Equal(t, []int64{NoID, NoID, 3, 0, NoID}, tbl.IDs())
	assert.Equal(t, "NEW", tbl[0].PlanSponsor)
	assert.False(t, tbl[0].Value.Valid)
	assert.False(t, tbl[1].Value.Valid)
	assert.Equal(t, "12.5", tbl[2].Cell(ColumnValue))
	assert.Equal(t, "7", tbl[3].Cell(ColumnValue))
	assert.False(t, tbl[4].Value.Valid)

	var bad Row
	assert.Error(t, json.Unmarshal([]byte(`{"Value":"n/a"}`), &bad))
}

func TestRowJSONKeepsNullValue(t *testing.T) {
	data, err := json.Marshal(Row{ID: 1})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Value":null`)

	var back Row
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, int64(1), back.ID)
	assert.False(t, back.Value.Valid)
}
