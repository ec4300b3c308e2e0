package household

import (
	"strconv"
	"strings"

	"github.com/hpungsan/ghar/internal/store"
)

// ToRecord converts a normalized entity into a storable record.
func ToRecord(e Entity) (store.Record, error) {
	return store.FromValue(e)
}

// FromRecord decodes a stored record into the typed shape for tag.
func FromRecord(tag Tag, rec store.Record) (Entity, error) {
	e := NewEntity(tag)
	if err := store.ToValue(rec, e); err != nil {
		return nil, err
	}
	return e, nil
}

// DecodeAll decodes every record of a collection into T, skipping records whose
// stored shape does not fit. It returns the number skipped.
func DecodeAll[T any](coll store.Collection) ([]T, int) {
	out := make([]T, 0, len(coll))
	skipped := 0
	for _, rec := range coll {
		var v T
		if err := store.ToValue(rec, &v); err != nil {
			skipped++
			continue
		}
		out = append(out, v)
	}
	return out, skipped
}

// ToRawInput flattens a stored record back into form values, so it can be
// edited and re-normalized. Fields in the insurance group are read from the
// nested insurance object.
func ToRawInput(tag Tag, rec store.Record) RawInput {
	raw := RawInput{}
	nested, _ := rec[GroupInsurance].(map[string]any)
	for _, f := range SchemaFor(tag).Fields {
		src := map[string]any(rec)
		if f.Group == GroupInsurance && tag == TagVehicle {
			src = nested
		}
		if src == nil {
			continue
		}
		v, ok := src[f.Key]
		if !ok || v == nil {
			continue
		}
		raw[f.Key] = formatValue(v)
	}
	if tag == TagWifi && raw["networkName"] == "" {
		if ssid := store.AsString(rec["ssid"]); ssid != "" {
			raw["networkName"] = ssid
		} else if name := store.AsString(rec["name"]); name != "" {
			raw["networkName"] = name
		}
	}
	if tag == TagWifi && strings.EqualFold(raw["securityType"], "open") {
		raw["securityType"] = "none"
	}
	return raw
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		if x {
			return "on"
		}
		return ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		if f, ok := store.AsFloat64(v); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return ""
	}
}

// Merge overlays patch onto base. Keys present in patch win, even when blank.
func Merge(base, patch RawInput) RawInput {
	out := make(RawInput, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}
