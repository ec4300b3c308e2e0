package ops

import (
	"context"
	"time"

	"github.com/hpungsan/ghar/internal/household"
	"github.com/hpungsan/ghar/internal/store"
)

// SummaryInput contains parameters for the Summary operation.
type SummaryInput struct {
	// Exclude drops domains from the totals, e.g. ones disabled in config.
	Exclude []household.Tag
}

// SummaryOutput contains the result of the Summary operation.
type SummaryOutput struct {
	household.Dashboard
	GeneratedAt string `json:"generated_at"`
}

// Summary builds the household dashboard. Legacy Wi-Fi records are counted
// when that key exists.
func Summary(ctx context.Context, s store.Store, now time.Time, input SummaryInput) (*SummaryOutput, error) {
	colls := make(map[household.Tag]store.Collection, len(household.Tags))
	for _, tag := range household.Tags {
		if excluded(tag, input.Exclude) {
			continue
		}
		coll, err := s.Load(ctx, tag.StorageKey())
		if err != nil {
			return nil, err
		}
		colls[tag] = coll
	}

	if _, ok := colls[household.TagWifi]; ok {
		legacy, err := loadIfPresent(ctx, s, household.LegacyWifiKey)
		if err != nil {
			return nil, err
		}
		colls[household.TagWifi] = append(colls[household.TagWifi].Clone(), legacy...)
	}

	return &SummaryOutput{
		Dashboard:   household.BuildDashboard(colls, now),
		GeneratedAt: now.UTC().Format(time.RFC3339),
	}, nil
}

func excluded(tag household.Tag, tags []household.Tag) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
