package ops

import (
	"context"
	"sort"

	"github.com/hpungsan/ghar/internal/household"
	"github.com/hpungsan/ghar/internal/store"
)

// LatestInput contains parameters for the Latest operation.
type LatestInput struct {
	Tags  []household.Tag // optional, default: every domain
	Limit int             // default: 10, max: 50
}

// LatestItem is a recently added record.
type LatestItem struct {
	Tag       household.Tag `json:"tag"`
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	CreatedAt string        `json:"createdAt,omitempty"`
}

// LatestOutput contains the result of the Latest operation.
type LatestOutput struct {
	Items []LatestItem `json:"items"`
}

// Latest returns the most recently added records across domains, newest first.
// Ids are creation timestamps, so they order records by age.
func Latest(ctx context.Context, s store.Store, input LatestInput) (*LatestOutput, error) {
	tags := input.Tags
	if len(tags) == 0 {
		tags = household.Tags
	}

	items := []LatestItem{}
	for _, tag := range tags {
		coll, err := s.Load(ctx, tag.StorageKey())
		if err != nil {
			return nil, err
		}
		for _, rec := range coll {
			id, ok := rec.ID()
			if !ok {
				continue
			}
			items = append(items, LatestItem{
				Tag:       tag,
				ID:        id,
				Name:      household.DisplayName(tag, rec),
				CreatedAt: store.AsString(rec["createdAt"]),
			})
		}
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].ID > items[j].ID })

	limit := clampLimit(input.Limit, DefaultLatestLimit, MaxLatestLimit)
	if len(items) > limit {
		items = items[:limit]
	}
	return &LatestOutput{Items: items}, nil
}
