package ops

import (
	"context"
	"fmt"

	"github.com/hpungsan/ghar/internal/errors"
	"github.com/hpungsan/ghar/internal/household"
	"github.com/hpungsan/ghar/internal/logging"
	"github.com/hpungsan/ghar/internal/store"
)

// PurgeInput contains parameters for the Purge operation.
type PurgeInput struct {
	Domain string // required
	// Legacy also clears the legacy wifiPasswords key (wifi only).
	Legacy bool
	// Confirm must be true; purging cannot be undone.
	Confirm bool
}

// PurgeOutput contains the result of the Purge operation.
type PurgeOutput struct {
	Purged  int    `json:"purged"`
	Message string `json:"message"`
}

// Purge permanently removes every record of a domain.
func Purge(ctx context.Context, s store.Store, input PurgeInput) (*PurgeOutput, error) {
	tag, err := ResolveDomain(input.Domain)
	if err != nil {
		return nil, err
	}
	if !input.Confirm {
		return nil, errors.NewInvalidRequest("purge requires confirm")
	}

	keys := []string{tag.StorageKey()}
	if tag == household.TagWifi && input.Legacy {
		keys = append(keys, household.LegacyWifiKey)
	}

	count := 0
	for _, key := range keys {
		coll, err := loadIfPresent(ctx, s, key)
		if err != nil {
			return nil, err
		}
		if err := s.Clear(ctx, key); err != nil {
			return nil, err
		}
		count += len(coll)
	}

	logging.From(ctx).Warn("domain purged", "tag", tag, "records", count)
	return &PurgeOutput{
		Purged:  count,
		Message: formatPurgeMessage(count, tag),
	}, nil
}

func formatPurgeMessage(count int, tag household.Tag) string {
	if count == 0 {
		return fmt.Sprintf("No %s records to purge", tag)
	}
	word := "record"
	if count > 1 {
		word = "records"
	}
	return fmt.Sprintf("Permanently deleted %d %s %s", count, tag, word)
}
