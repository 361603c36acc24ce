package census

import "fmt"

// MergePolicy decides what happens to rows the edited view adds or drops.
// The zero value only updates rows that already exist in the master table.
type MergePolicy struct {
	// Insert appends edited rows whose ID is NoID or unknown to the master.
	Insert bool `json:"insert"`
	// Prune deletes master rows that matched the view's selection but are
	// missing from the edited table.
	Prune bool `json:"prune"`
}

// MergeMode names the branch a merge took.
type MergeMode string

const (
	MergeAdopt   MergeMode = "adopt"   // master was empty, edited table adopted
	MergeReplace MergeMode = "replace" // no filter active, wholesale replace
	MergeByID    MergeMode = "by_id"   // filter active, rows matched by ID
)

// MergeReport summarizes a merge.
type MergeReport struct {
	Mode     MergeMode `json:"mode"`
	Updated  int       `json:"updated"`
	Inserted int       `json:"inserted"`
	Deleted  int       `json:"deleted"`
	Skipped  []int64   `json:"skipped,omitempty"`
	Rows     int       `json:"rows"`
}

// Merge reconciles an edited view back into the master table. The view was
// produced from master with the given selection. Neither input is modified.
func Merge(master, edited Table, sel Selection, policy MergePolicy) (Table, MergeReport, error) {
	if _, err := edited.Index(); err != nil {
		return nil, MergeReport{}, err
	}

	if len(master) == 0 {
		out := AssignIDs(edited.Clone())
		return out, MergeReport{Mode: MergeAdopt, Inserted: len(out), Rows: len(out)}, nil
	}
	if !sel.Active() {
		out := AssignIDs(edited.Clone())
		return out, MergeReport{Mode: MergeReplace, Rows: len(out)}, nil
	}

	out := master.Clone()
	idx, err := out.Index()
	if err != nil {
		return nil, MergeReport{}, fmt.Errorf("master table: %w", err)
	}

	report := MergeReport{Mode: MergeByID}
	present := make(map[int64]struct{}, len(edited))
	var pending Table
	for _, r := range edited {
		if r.ID == NoID {
			pending = append(pending, r.Clone())
			continue
		}
		present[r.ID] = struct{}{}
		pos, ok := idx[r.ID]
		if !ok {
			pending = append(pending, r.Clone())
			continue
		}
		out[pos] = r.Clone()
		report.Updated++
	}

	if policy.Prune {
		kept := out[:0]
		for _, r := range out {
			if _, ok := present[r.ID]; !ok && sel.Matches(masterRow(master, idx, r.ID)) {
				report.Deleted++
				continue
			}
			kept = append(kept, r)
		}
		out = kept
	}

	for _, r := range pending {
		if !policy.Insert {
			report.Skipped = append(report.Skipped, r.ID)
			continue
		}
		out = append(out, r)
		report.Inserted++
	}
	AssignIDs(out)

	report.Rows = len(out)
	return out, report, nil
}

// masterRow returns the pre-merge version of a row so pruning judges the
// selection against what the view was built from, not the edited values.
func masterRow(master Table, idx map[int64]int, id int64) Row {
	if pos, ok := idx[id]; ok {
		return master[pos]
	}
	return Row{}
}
