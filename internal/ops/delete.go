package ops

import (
	"context"

	"github.com/hpungsan/ghar/internal/errors"
	"github.com/hpungsan/ghar/internal/form"
	"github.com/hpungsan/ghar/internal/household"
)

// DeleteInput contains parameters for the Delete operation.
type DeleteInput struct {
	Domain string
	ID     int64
}

// DeleteOutput contains the result of the Delete operation.
type DeleteOutput struct {
	Deleted bool          `json:"deleted"`
	Tag     household.Tag `json:"tag"`
	ID      int64         `json:"id"`
}

// Delete removes one record. The remaining records keep their order.
func Delete(ctx context.Context, eng *form.Engine, input DeleteInput) (*DeleteOutput, error) {
	tag, err := ResolveDomain(input.Domain)
	if err != nil {
		return nil, err
	}
	if input.ID <= 0 {
		return nil, errors.NewInvalidRequest("id is required")
	}

	if err := eng.Delete(ctx, tag, input.ID); err != nil {
		return nil, err
	}
	return &DeleteOutput{Deleted: true, Tag: tag, ID: input.ID}, nil
}
