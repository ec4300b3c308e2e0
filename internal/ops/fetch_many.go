package ops

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/hpungsan/ghar/internal/errors"
	"github.com/hpungsan/ghar/internal/store"
)

// MaxFetchManyRefs bounds one FetchMany call.
const MaxFetchManyRefs = 50

// FetchManyRef identifies one record.
type FetchManyRef struct {
	Domain string `json:"domain"`
	ID     int64  `json:"id"`
}

// FetchManyInput contains parameters for the FetchMany operation.
type FetchManyInput struct {
	Items  []FetchManyRef
	Reveal bool
}

// FetchManyError represents an error for a specific ref.
type FetchManyError struct {
	Ref     FetchManyRef `json:"ref"`
	Code    string       `json:"code"`
	Message string       `json:"message"`
}

// FetchManyOutput contains the result of the FetchMany operation.
type FetchManyOutput struct {
	Items  []FetchOutput    `json:"items"`
	Errors []FetchManyError `json:"errors"`
}

// FetchMany retrieves several records, possibly from different domains.
// Returns partial success with items and errors arrays.
func FetchMany(ctx context.Context, s store.Store, now time.Time, input FetchManyInput) (*FetchManyOutput, error) {
	if len(input.Items) == 0 {
		return nil, errors.NewInvalidRequest("at least one ref is required")
	}
	if len(input.Items) > MaxFetchManyRefs {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("at most %d refs per call", MaxFetchManyRefs))
	}

	output := &FetchManyOutput{Items: []FetchOutput{}, Errors: []FetchManyError{}}
	for _, ref := range input.Items {
		item, err := Fetch(ctx, s, now, FetchInput{Domain: ref.Domain, ID: ref.ID, Reveal: input.Reveal})
		if err != nil {
			var gErr *errors.GharError
			if !stderrors.As(err, &gErr) || gErr.Code == errors.ErrInternal || gErr.Code == errors.ErrCancelled {
				return nil, err
			}
			output.Errors = append(output.Errors, FetchManyError{Ref: ref, Code: string(gErr.Code), Message: gErr.Message})
			continue
		}
		output.Items = append(output.Items, *item)
	}
	return output, nil
}
