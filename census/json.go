package census

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

type rowFields Row

// UnmarshalJSON decodes a row sent back from the grid. A missing or null ID
// becomes NoID, and Value accepts a number, a numeric string, "" or null.
func (r *Row) UnmarshalJSON(data []byte) error {
	aux := struct {
		*rowFields
		Value json.RawMessage `json:"Value"`
	}{rowFields: (*rowFields)(r)}
	r.ID = NoID
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	v, err := valueFromJSON(aux.Value)
	if err != nil {
		return err
	}
	r.Value = v
	return nil
}

func valueFromJSON(raw json.RawMessage) (decimal.NullDecimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.NullDecimal{}, nil
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return decimal.NullDecimal{}, err
		}
	}
	v, ok := ParseValue(text)
	if !ok {
		return decimal.NullDecimal{}, fmt.Errorf("invalid Value %q", text)
	}
	return v, nil
}

// ParseValue reads a Value cell. Blank text is null; ok is false when the
// text is neither blank nor a number.
func ParseValue(text string) (decimal.NullDecimal, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return decimal.NullDecimal{}, true
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.NullDecimal{}, false
	}
	return decimal.NewNullDecimal(d), true
}
