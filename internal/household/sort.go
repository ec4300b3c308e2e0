package household

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hpungsan/ghar/internal/errors"
	"github.com/hpungsan/ghar/internal/store"
)

// Sort orders accepted by SortRecords.
const (
	SortNewest = "newest"
	SortOldest = "oldest"
	SortYear   = "year"
	SortMake   = "make"
	SortName   = "name"
	SortDate   = "date"
)

// SortOrders lists the accepted sort names.
var SortOrders = []string{SortNewest, SortOldest, SortYear, SortMake, SortName, SortDate}

// dateKeys is the date each domain is ordered by for SortDate.
var dateKeys = map[Tag]string{
	TagSubscription: "nextBillingDate",
	TagBill:         "dueDate",
	TagInsurance:    "renewalDate",
	TagSavings:      "deadline",
}

// SortRecords returns a sorted copy of coll. The stored order is never changed.
// An empty order keeps insertion order.
func SortRecords(tag Tag, coll store.Collection, order string) (store.Collection, error) {
	out := coll.Clone()
	var less func(a, b store.Record) bool

	switch order {
	case "":
		return out, nil
	case SortNewest:
		less = func(a, b store.Record) bool { return recordID(a) > recordID(b) }
	case SortOldest:
		less = func(a, b store.Record) bool { return recordID(a) < recordID(b) }
	case SortYear:
		less = func(a, b store.Record) bool { return year(a) > year(b) }
	case SortMake:
		less = func(a, b store.Record) bool { return fold(a, "make") < fold(b, "make") }
	case SortName:
		less = func(a, b store.Record) bool { return strings.ToLower(DisplayName(tag, a)) < strings.ToLower(DisplayName(tag, b)) }
	case SortDate:
		less = func(a, b store.Record) bool { return dateOf(tag, a) < dateOf(tag, b) }
	default:
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown sort %q (valid: %s)", order, strings.Join(SortOrders, ", ")))
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out, nil
}

// Matches reports whether any searchable text of rec contains term, ignoring case.
// Secrets are never searched.
func Matches(rec store.Record, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for k, v := range rec {
		if k == "password" {
			continue
		}
		if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), term) {
			return true
		}
	}
	return false
}

// DisplayName is the human label of a record in lists.
func DisplayName(tag Tag, rec store.Record) string {
	switch tag {
	case TagVehicle:
		return strings.TrimSpace(fmt.Sprintf("%s %s %s", yearText(rec), store.AsString(rec["make"]), store.AsString(rec["model"])))
	case TagPassword:
		if t := store.AsString(rec["title"]); t != "" {
			return t
		}
		return store.AsString(rec["website"])
	case TagWifi:
		for _, k := range []string{"networkName", "ssid", "name"} {
			if s := store.AsString(rec[k]); s != "" {
				return s
			}
		}
		return ""
	case TagInsurance:
		return strings.TrimSpace(store.AsString(rec["provider"]) + " " + store.AsString(rec["type"]))
	default:
		return store.AsString(rec["name"])
	}
}

func recordID(rec store.Record) int64 {
	v, _ := rec.ID()
	return v
}

func year(rec store.Record) int64 {
	v, _ := store.AsInt64(rec["year"])
	return v
}

func yearText(rec store.Record) string {
	if y := year(rec); y != 0 {
		return fmt.Sprint(y)
	}
	return ""
}

func fold(rec store.Record, key string) string {
	return strings.ToLower(store.AsString(rec[key]))
}

// dateOf returns the sortable date of a record. Records without one sort last.
func dateOf(tag Tag, rec store.Record) string {
	var s string
	if tag == TagVehicle {
		if ins, ok := rec[GroupInsurance].(map[string]any); ok {
			s = store.AsString(ins["expiryDate"])
		}
	} else if key, ok := dateKeys[tag]; ok {
		s = store.AsString(rec[key])
	} else {
		s = store.AsString(rec["createdAt"])
	}
	if s == "" {
		return "\uffff"
	}
	return s
}
