// Package census provides the census table model and the pure operations
// over it: equality filtering, option extraction and merging edits back by
// row identity.
package census

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// NoID marks a row that has not been given an identifier yet.
const NoID int64 = -1

// DateLayout is the layout BirthDate values are read and written with.
const DateLayout = "2006-01-02"

// Column names as they appear in source result sets and over the wire.
const (
	ColumnID           = "ID"
	ColumnPlanSponsor  = "PlanSponsor"
	ColumnCarrier      = "Carrier"
	ColumnMemberStatus = "MemberStatus"
	ColumnValue        = "Value"
	ColumnBirthDate    = "BirthDate"
)

// KnownColumns lists the typed columns in display order.
var KnownColumns = []string{
	ColumnID,
	ColumnPlanSponsor,
	ColumnCarrier,
	ColumnMemberStatus,
	ColumnValue,
	ColumnBirthDate,
}

// ErrDuplicateID is returned when a table carries the same ID twice.
var ErrDuplicateID = errors.New("duplicate row id")

// Row is one census member record. Empty string attributes are nulls, as
// is an invalid Value.
type Row struct {
	ID           int64               `json:"ID"`
	PlanSponsor  string              `json:"PlanSponsor"`
	Carrier      string              `json:"Carrier"`
	MemberStatus string              `json:"MemberStatus"`
	Value        decimal.NullDecimal `json:"Value"`
	BirthDate    *time.Time          `json:"BirthDate,omitempty"`
	Extra        map[string]string   `json:"Extra,omitempty"`
}

// Clone returns a deep copy of the row.
func (r Row) Clone() Row {
	out := r
	if r.BirthDate != nil {
		t := *r.BirthDate
		out.BirthDate = &t
	}
	if r.Extra != nil {
		out.Extra = make(map[string]string, len(r.Extra))
		for k, v := range r.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// Cell renders a column value as display text.
func (r Row) Cell(column string) string {
	switch column {
	case ColumnID:
		return strconv.FormatInt(r.ID, 10)
	case ColumnPlanSponsor:
		return r.PlanSponsor
	case ColumnCarrier:
		return r.Carrier
	case ColumnMemberStatus:
		return r.MemberStatus
	case ColumnValue:
		if !r.Value.Valid {
			return ""
		}
		return r.Value.Decimal.String()
	case ColumnBirthDate:
		if r.BirthDate == nil {
			return ""
		}
		return r.BirthDate.Format(DateLayout)
	default:
		return r.Extra[column]
	}
}

func (r Row) has(column string) bool {
	switch column {
	case ColumnValue:
		return r.Value.Valid
	case ColumnBirthDate:
		return r.BirthDate != nil
	default:
		return r.Cell(column) != ""
	}
}

// Table is an ordered collection of rows.
type Table []Row

// Clone returns a deep copy of the table. A nil table stays nil.
func (t Table) Clone() Table {
	if t == nil {
		return nil
	}
	out := make(Table, len(t))
	for i, r := range t {
		out[i] = r.Clone()
	}
	return out
}

// IDs returns the row identifiers in table order.
func (t Table) IDs() []int64 {
	ids := make([]int64, len(t))
	for i, r := range t {
		ids[i] = r.ID
	}
	return ids
}

// Index maps row ID to position. Rows without an ID are skipped.
func (t Table) Index() (map[int64]int, error) {
	idx := make(map[int64]int, len(t))
	for i, r := range t {
		if r.ID == NoID {
			continue
		}
		if _, dup := idx[r.ID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, r.ID)
		}
		idx[r.ID] = i
	}
	return idx, nil
}

func (t Table) maxID() int64 {
	highest := NoID
	for _, r := range t {
		if r.ID > highest {
			highest = r.ID
		}
	}
	return highest
}

// AssignIDs gives every row without an ID the next sequential identifier,
// following the original row order. For a table where no row carries an ID
// the result numbers rows from zero.
func AssignIDs(t Table) Table {
	next := t.maxID() + 1
	for i := range t {
		if t[i].ID == NoID {
			t[i].ID = next
			next++
		}
	}
	return t
}

// Columns returns the display column order: the ID, then the typed columns
// at least one row carries a value for, then extra columns in first-seen
// order.
func Columns(t Table) []string {
	cols := []string{ColumnID}
	for _, col := range KnownColumns[1:] {
		for _, r := range t {
			if r.has(col) {
				cols = append(cols, col)
				break
			}
		}
	}
	seen := make(map[string]struct{})
	for _, r := range t {
		if len(r.Extra) == 0 {
			continue
		}
		keys := make([]string, 0, len(r.Extra))
		for k := range r.Extra {
			if _, ok := seen[k]; !ok {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			seen[k] = struct{}{}
			cols = append(cols, k)
		}
	}
	return cols
}
