package db

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"census-grid/census"
)

var birthDateLayouts = []string{
	census.DateLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// DecodeRow maps one result-set record onto a census row. Column names are
// matched case-insensitively; unknown columns are kept as Extra text. Cells
// that cannot be coerced become null so one bad value never drops the table.
func DecodeRow(record map[string]any) census.Row {
	row := census.Row{ID: census.NoID}
	for name, raw := range record {
		switch strings.ToLower(name) {
		case "id":
			id, ok, err := intValue(raw)
			if err != nil {
				log.Debug().Err(err).Str("column", name).Msg("ignoring unparsable census id")
			}
			if ok {
				row.ID = id
			}
		case "plansponsor":
			row.PlanSponsor = textValue(raw)
		case "carrier":
			row.Carrier = textValue(raw)
		case "memberstatus":
			row.MemberStatus = textValue(raw)
		case "value":
			v, err := decimalValue(raw)
			if err != nil {
				log.Debug().Err(err).Str("column", name).Msg("census value is not numeric, storing null")
			}
			row.Value = v
		case "birthdate":
			row.BirthDate = dateValue(raw)
		default:
			if row.Extra == nil {
				row.Extra = make(map[string]string)
			}
			row.Extra[name] = textValue(raw)
		}
	}
	return row
}

func textValue(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func intValue(raw any) (int64, bool, error) {
	switch v := raw.(type) {
	case nil:
		return 0, false, nil
	case int64:
		return v, true, nil
	case int32:
		return int64(v), true, nil
	case int:
		return int64(v), true, nil
	case uint32:
		return int64(v), true, nil
	case uint64:
		return int64(v), true, nil
	case float64:
		return int64(v), true, nil
	}
	s := strings.TrimSpace(textValue(raw))
	if s == "" {
		return 0, false, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid id %q", s)
	}
	return id, true, nil
}

func decimalValue(raw any) (decimal.NullDecimal, error) {
	switch v := raw.(type) {
	case nil:
		return decimal.NullDecimal{}, nil
	case decimal.Decimal:
		return decimal.NewNullDecimal(v), nil
	case int64:
		return decimal.NewNullDecimal(decimal.NewFromInt(v)), nil
	case int32:
		return decimal.NewNullDecimal(decimal.NewFromInt32(v)), nil
	case int:
		return decimal.NewNullDecimal(decimal.NewFromInt(int64(v))), nil
	case float64:
		return decimal.NewNullDecimal(decimal.NewFromFloat(v)), nil
	case float32:
		return decimal.NewNullDecimal(decimal.NewFromFloat32(v)), nil
	}
	text := textValue(raw)
	v, ok := census.ParseValue(text)
	if !ok {
		return decimal.NullDecimal{}, fmt.Errorf("invalid value %q", text)
	}
	return v, nil
}

// dateValue coerces a value into a date; anything unparsable becomes null.
func dateValue(raw any) *time.Time {
	switch v := raw.(type) {
	case nil:
		return nil
	case time.Time:
		if v.IsZero() {
			return nil
		}
		return &v
	}
	s := strings.TrimSpace(textValue(raw))
	for _, layout := range birthDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
