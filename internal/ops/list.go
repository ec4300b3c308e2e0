package ops

import (
	"context"
	"slices"
	"strings"

	"github.com/hpungsan/ghar/internal/household"
	"github.com/hpungsan/ghar/internal/store"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Domain        string            // required
	Sort          string            // optional, see household.SortOrders; default: insertion order
	Search        string            // optional case-insensitive substring over text fields
	Filters       map[string]string // optional exact matches (case-insensitive), e.g. location=Home
	Limit         int               // default: 20, max: 100
	Offset        int               // default: 0
	IncludeLegacy bool              // wifi only: also read the legacy wifiPasswords key
	Reveal        bool              // show password values
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Tag         household.Tag  `json:"tag"`
	Key         string         `json:"storage_key"`
	Items       []store.Record `json:"items"`
	Pagination  Pagination     `json:"pagination"`
	Sort        string         `json:"sort"`
	LegacyCount int            `json:"legacy_count,omitempty"`
}

// List returns one page of a domain's records.
func List(ctx context.Context, s store.Store, input ListInput) (*ListOutput, error) {
	tag, err := ResolveDomain(input.Domain)
	if err != nil {
		return nil, err
	}

	coll, err := s.Load(ctx, tag.StorageKey())
	if err != nil {
		return nil, err
	}

	legacy := 0
	if tag == household.TagWifi && input.IncludeLegacy {
		extra, err := loadIfPresent(ctx, s, household.LegacyWifiKey)
		if err != nil {
			return nil, err
		}
		legacy = len(extra)
		coll = append(coll.Clone(), extra...)
	}

	filtered := make(store.Collection, 0, len(coll))
	for _, rec := range coll {
		if household.Matches(rec, input.Search) && matchesFilters(rec, input.Filters) {
			filtered = append(filtered, rec)
		}
	}

	sorted, err := household.SortRecords(tag, filtered, input.Sort)
	if err != nil {
		return nil, err
	}

	limit := clampLimit(input.Limit, DefaultListLimit, MaxListLimit)
	page, pagination := paginate(sorted, limit, input.Offset)

	items := make([]store.Record, len(page))
	for i, rec := range page {
		if input.Reveal {
			items[i] = rec
		} else {
			items[i] = maskSecrets(rec)
		}
	}

	sortName := input.Sort
	if sortName == "" {
		sortName = "insertion"
	}

	return &ListOutput{
		Tag:         tag,
		Key:         tag.StorageKey(),
		Items:       items,
		Pagination:  pagination,
		Sort:        sortName,
		LegacyCount: legacy,
	}, nil
}

// loadIfPresent loads key only when it has been written, so reading a
// legacy key never creates it.
func loadIfPresent(ctx context.Context, s store.Store, key string) (store.Collection, error) {
	keys, err := s.Keys(ctx)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(keys, key) {
		return store.Collection{}, nil
	}
	return s.Load(ctx, key)
}

func matchesFilters(rec store.Record, filters map[string]string) bool {
	for field, want := range filters {
		got, ok := rec[field]
		if !ok {
			return false
		}
		var text string
		switch v := got.(type) {
		case string:
			text = v
		case bool:
			text = "false"
			if v {
				text = "true"
			}
		default:
			f, ok := store.AsFloat64(v)
			if !ok {
				return false
			}
			n, err := household.ParseNumber(want)
			if err != nil || n != f {
				return false
			}
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(text), strings.TrimSpace(want)) {
			return false
		}
	}
	return true
}
