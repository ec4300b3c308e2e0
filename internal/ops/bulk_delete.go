package ops

import (
	"context"
	"fmt"
	"slices"

	"github.com/hpungsan/ghar/internal/errors"
	"github.com/hpungsan/ghar/internal/household"
	"github.com/hpungsan/ghar/internal/store"
)

// BulkDeleteInput contains parameters for the BulkDelete operation.
type BulkDeleteInput struct {
	Domain string
	IDs    []int64 // required, at most MaxBulkDeleteIDs
}

// BulkDeleteOutput contains the result of the BulkDelete operation.
type BulkDeleteOutput struct {
	Deleted  int           `json:"deleted"`
	Missing  []int64       `json:"missing,omitempty"`
	Tag      household.Tag `json:"tag"`
	Key      string        `json:"storage_key"`
	Remained int           `json:"remaining"`
}

// BulkDelete removes several records of one domain in a single write.
// Ids that are not stored are reported, not treated as errors.
func BulkDelete(ctx context.Context, s store.Store, input BulkDeleteInput) (*BulkDeleteOutput, error) {
	tag, err := ResolveDomain(input.Domain)
	if err != nil {
		return nil, err
	}
	if len(input.IDs) == 0 {
		return nil, errors.NewInvalidRequest("at least one id is required")
	}
	if len(input.IDs) > MaxBulkDeleteIDs {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("at most %d ids per call", MaxBulkDeleteIDs))
	}

	key := tag.StorageKey()
	output := &BulkDeleteOutput{Tag: tag, Key: key}
	coll, err := s.Mutate(ctx, key, func(coll store.Collection) (store.Collection, error) {
		output.Deleted = 0
		output.Missing = nil
		for _, id := range input.IDs {
			if coll.Index(id) < 0 && !slices.Contains(output.Missing, id) {
				output.Missing = append(output.Missing, id)
			}
		}
		out := make(store.Collection, 0, len(coll))
		for _, rec := range coll {
			id, ok := rec.ID()
			if ok && slices.Contains(input.IDs, id) {
				output.Deleted++
				continue
			}
			out = append(out, rec)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	output.Remained = len(coll)
	return output, nil
}
