package census

import "sort"

// Selection holds up to three equality filters. An empty value is unset.
type Selection struct {
	Carrier      string `json:"carrier"`
	PlanSponsor  string `json:"plan_sponsor"`
	MemberStatus string `json:"member_status"`
}

// Active reports whether any filter value is set.
func (s Selection) Active() bool {
	return s.Carrier != "" || s.PlanSponsor != "" || s.MemberStatus != ""
}

// Matches reports whether the row equals every set filter value exactly.
func (s Selection) Matches(r Row) bool {
	if s.Carrier != "" && r.Carrier != s.Carrier {
		return false
	}
	if s.PlanSponsor != "" && r.PlanSponsor != s.PlanSponsor {
		return false
	}
	if s.MemberStatus != "" && r.MemberStatus != s.MemberStatus {
		return false
	}
	return true
}

// Filter returns a copy of the rows matching the selection, in their
// original relative order. With no filter set the whole table is returned.
func Filter(t Table, s Selection) Table {
	out := make(Table, 0, len(t))
	for _, r := range t {
		if s.Matches(r) {
			out = append(out, r.Clone())
		}
	}
	return out
}

// OptionSet holds the dropdown choices for each filter column.
type OptionSet struct {
	Carriers     []string `json:"carriers"`
	PlanSponsors []string `json:"plan_sponsors"`
	Statuses     []string `json:"statuses"`
}

// Options collects the distinct, sorted, non-null values of the filter columns.
func Options(t Table) OptionSet {
	return OptionSet{
		Carriers:     distinct(t, func(r Row) string { return r.Carrier }),
		PlanSponsors: distinct(t, func(r Row) string { return r.PlanSponsor }),
		Statuses:     distinct(t, func(r Row) string { return r.MemberStatus }),
	}
}

func distinct(t Table, field func(Row) string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, r := range t {
		v := field(r)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
