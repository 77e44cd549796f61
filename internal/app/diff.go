package app

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"seminargo/internal/domain"
)

// Changed reports whether a field differs, absorbing encoding artifacts:
// JSON blobs are compared in canonical form, floats rounded to 6 decimals,
// strings trimmed. Two empty values never differ.
func Changed(kind domain.FieldKind, oldV, newV any) bool {
	switch kind {
	case domain.KindJSON:
		o := canonicalJSON(asString(oldV))
		n := canonicalJSON(asString(newV))
		return o != n
	case domain.KindFloat:
		return round6(asFloat(oldV)) != round6(asFloat(newV))
	case domain.KindInt:
		return asInt(oldV) != asInt(newV)
	default:
		return strings.TrimSpace(asString(oldV)) != strings.TrimSpace(asString(newV))
	}
}

// DiffRecords compares every syncable field of two records and returns the
// changes in deterministic field order.
func DiffRecords(oldRec, newRec domain.HotelRecord) []domain.FieldChange {
	oldF, newF := oldRec.Fields(), newRec.Fields()

	names := make([]string, 0, len(domain.FieldKinds))
	for k := range domain.FieldKinds {
		names = append(names, k)
	}
	sort.Strings(names)

	var changes []domain.FieldChange
	for _, name := range names {
		if !Changed(domain.FieldKinds[name], oldF[name], newF[name]) {
			continue
		}
		changes = append(changes, domain.FieldChange{
			Field: name,
			Old:   renderValue(oldF[name]),
			New:   renderValue(newF[name]),
		})
	}
	return changes
}

// ChangedColumns maps the diff back to typed column values from the new
// record, ready for a column-wise update.
func ChangedColumns(changes []domain.FieldChange, newRec domain.HotelRecord) map[string]any {
	fields := newRec.Fields()
	cols := make(map[string]any, len(changes))
	for _, c := range changes {
		cols[c.Field] = fields[c.Field]
	}
	return cols
}

// canonicalJSON re-encodes a JSON document with sorted keys and stable
// escaping; key order and Unicode-escape differences wash out. Empty and
// whitespace-only inputs normalize to "". Invalid JSON is compared verbatim.
func canonicalJSON(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return ""
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return string(marshalCanonical(v))
}

func round6(f float64) float64 {
	return math.Round(f*1e6) / 1e6
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f
	default:
		return 0
	}
}

func asInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(t))
		return n
	default:
		return 0
	}
}

func renderValue(v any) string {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return asString(v)
	}
}
