package ops

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/hpungsan/ghar/internal/errors"
	"github.com/hpungsan/ghar/internal/form"
	"github.com/hpungsan/ghar/internal/household"
)

// BulkUpdateInput contains parameters for the BulkUpdate operation.
type BulkUpdateInput struct {
	Domain string
	IDs    []int64            // required, at most MaxBulkDeleteIDs
	Fields household.RawInput // merged into every record, e.g. status=paid
}

// BulkUpdateError reports one record that could not be updated.
type BulkUpdateError struct {
	ID      int64               `json:"id"`
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  []errors.FieldError `json:"fields,omitempty"`
}

// BulkUpdateOutput contains the result of the BulkUpdate operation.
type BulkUpdateOutput struct {
	Updated int               `json:"updated"`
	Errors  []BulkUpdateError `json:"errors"`
	Message string            `json:"message"`
}

// BulkUpdate applies the same field changes to several records of one domain.
// Each record is re-validated on its own; one bad record does not stop the rest.
func BulkUpdate(ctx context.Context, eng *form.Engine, input BulkUpdateInput) (*BulkUpdateOutput, error) {
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
	if len(input.Fields) == 0 {
		return nil, errors.NewInvalidRequest("at least one field must be provided")
	}

	output := &BulkUpdateOutput{Errors: []BulkUpdateError{}}
	for _, id := range input.IDs {
		_, err := Update(ctx, eng, UpdateInput{Domain: string(tag), ID: id, Fields: input.Fields})
		if err != nil {
			var gErr *errors.GharError
			if !stderrors.As(err, &gErr) || gErr.Code == errors.ErrStorageWriteFailed ||
				gErr.Code == errors.ErrInternal || gErr.Code == errors.ErrCancelled {
				return nil, err
			}
			output.Errors = append(output.Errors, BulkUpdateError{
				ID:      id,
				Code:    string(gErr.Code),
				Message: gErr.Message,
				Fields:  errors.Fields(err),
			})
			continue
		}
		output.Updated++
	}

	output.Message = formatBulkUpdateMessage(output.Updated, len(output.Errors), tag)
	return output, nil
}

func formatBulkUpdateMessage(updated, failed int, tag household.Tag) string {
	word := "records"
	if updated == 1 {
		word = "record"
	}
	msg := fmt.Sprintf("Updated %d %s %s", updated, tag, word)
	if failed > 0 {
		msg += fmt.Sprintf(" (%d failed)", failed)
	}
	return msg
}
