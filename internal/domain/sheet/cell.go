package sheet

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// DecodeCell converts a stored cell into its wire value.
//
// Text cells stay strings. Number cells become int64; spreadsheet renderings
// such as "2.0" or " 3 " are accepted and an empty cell reads as 0. List cells
// are JSON arrays; an empty cell reads as an empty list.
func DecodeCell(kind Kind, cell string) (any, error) {
	switch kind {
	case KindNumber:
		return ParseQuantity(cell)
	case KindList:
		return ParseList(cell)
	default:
		return cell, nil
	}
}

// EncodeCell converts a decoded JSON value into a stored cell.
//
// Strings are written as-is, numbers in their shortest decimal form, booleans
// as true/false, null as an empty cell. List columns are written as a JSON
// array of strings.
func EncodeCell(kind Kind, value any) (string, error) {
	switch kind {
	case KindList:
		return encodeList(value)
	case KindNumber:
		return encodeNumber(value)
	default:
		return Stringify(value), nil
	}
}

// ParseQuantity parses a numeric cell as an integer quantity.
func ParseQuantity(cell string) (int64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(cell)
	if err != nil {
		return 0, fmt.Errorf("parse quantity %q: %w", cell, err)
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("parse quantity %q: not a whole number", cell)
	}
	return d.IntPart(), nil
}

// ParseList parses a serialized list cell.
func ParseList(cell string) ([]string, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return []string{}, nil
	}
	var raw []any
	if err := json.Unmarshal([]byte(cell), &raw); err != nil {
		return nil, fmt.Errorf("parse list cell: %w", err)
	}
	out := make([]string, len(raw))
	for i, v := range raw {
		out[i] = Stringify(v)
	}
	return out, nil
}

// FormatList serializes a list for storage in one cell.
func FormatList(values []string) string {
	if values == nil {
		values = []string{}
	}
	b, _ := json.Marshal(values)
	return string(b)
}

// Stringify renders a decoded JSON value the way a spreadsheet stores it.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case json.Number:
		return v.String()
	case float64:
		return decimal.NewFromFloat(v).String()
	case float32:
		return decimal.NewFromFloat32(v).String()
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case fmt.Stringer:
		return v.String()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}

func encodeNumber(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "0", nil
	case string:
		n, err := ParseQuantity(v)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(n, 10), nil
	default:
		return Stringify(v), nil
	}
}

func encodeList(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return FormatList(nil), nil
	case []string:
		return FormatList(v), nil
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			out[i] = Stringify(item)
		}
		return FormatList(out), nil
	case string:
		// A newline separated block, as typed into the IMEI text areas.
		return FormatList(SplitLines(v)), nil
	default:
		return "", fmt.Errorf("expected a list, got %T", value)
	}
}

// SplitLines splits a multi-line text block into trimmed, non-empty lines.
func SplitLines(s string) []string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
