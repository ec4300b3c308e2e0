package ops

import (
	"context"
	"time"

	"github.com/hpungsan/ghar/internal/errors"
	"github.com/hpungsan/ghar/internal/household"
	"github.com/hpungsan/ghar/internal/store"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	Domain string
	ID     int64
	Reveal bool // show password values
}

// FetchOutput contains the result of the Fetch operation.
type FetchOutput struct {
	Tag     household.Tag  `json:"tag"`
	Key     string         `json:"storage_key"`
	Record  store.Record   `json:"record"`
	Details map[string]any `json:"details,omitempty"`
	Legacy  bool           `json:"legacy,omitempty"`
}

// Fetch retrieves one record by id. Wi-Fi lookups fall back to the legacy key.
func Fetch(ctx context.Context, s store.Store, now time.Time, input FetchInput) (*FetchOutput, error) {
	tag, err := ResolveDomain(input.Domain)
	if err != nil {
		return nil, err
	}

	key := tag.StorageKey()
	coll, err := s.Load(ctx, key)
	if err != nil {
		return nil, err
	}

	rec, found := coll.Find(input.ID)
	legacy := false
	if !found && tag == household.TagWifi {
		extra, err := loadIfPresent(ctx, s, household.LegacyWifiKey)
		if err != nil {
			return nil, err
		}
		rec, found = extra.Find(input.ID)
		legacy = found
	}
	if !found {
		return nil, errors.NewNotFound(key, input.ID)
	}

	output := &FetchOutput{
		Tag:     tag,
		Key:     key,
		Record:  rec,
		Details: household.Details(tag, rec, now),
		Legacy:  legacy,
	}
	if legacy {
		output.Key = household.LegacyWifiKey
	}
	if !input.Reveal {
		output.Record = maskSecrets(rec)
		if _, ok := output.Details["qr"]; ok {
			output.Details["qr"] = MaskedSecret
		}
	}
	return output, nil
}
