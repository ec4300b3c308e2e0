package ops

import (
	"context"

	"github.com/hpungsan/ghar/internal/errors"
	"github.com/hpungsan/ghar/internal/form"
	"github.com/hpungsan/ghar/internal/household"
	"github.com/hpungsan/ghar/internal/store"
)

// UpdateInput contains parameters for the Update operation.
type UpdateInput struct {
	Domain string
	ID     int64
	Fields household.RawInput

	// Replace re-normalizes Fields alone. Otherwise Fields are merged over the
	// stored values, so callers only send what changed.
	Replace bool
}

// UpdateOutput contains the result of the Update operation.
type UpdateOutput struct {
	Tag    household.Tag `json:"tag"`
	Key    string        `json:"storage_key"`
	Record store.Record  `json:"record"`
}

// Update edits an existing record. Editing a legacy Wi-Fi record moves it
// into wifiNetworks.
func Update(ctx context.Context, eng *form.Engine, input UpdateInput) (*UpdateOutput, error) {
	tag, err := ResolveDomain(input.Domain)
	if err != nil {
		return nil, err
	}
	if input.ID <= 0 {
		return nil, errors.NewInvalidRequest("id is required")
	}
	if len(input.Fields) == 0 {
		return nil, errors.NewInvalidRequest("at least one field must be provided")
	}

	raw := input.Fields
	if !input.Replace {
		key := tag.StorageKey()
		coll, err := eng.Store().Load(ctx, key)
		if err != nil {
			return nil, err
		}
		existing, ok := coll.Find(input.ID)
		if !ok && tag == household.TagWifi {
			legacy, err := loadIfPresent(ctx, eng.Store(), household.LegacyWifiKey)
			if err != nil {
				return nil, err
			}
			existing, ok = legacy.Find(input.ID)
		}
		if !ok {
			return nil, errors.NewNotFound(key, input.ID)
		}
		raw = household.Merge(household.ToRawInput(tag, existing), input.Fields)
	}

	rec, err := eng.Edit(ctx, tag, input.ID, raw)
	if err != nil {
		return nil, err
	}
	return &UpdateOutput{
		Tag:    tag,
		Key:    tag.StorageKey(),
		Record: maskSecrets(rec),
	}, nil
}
