package ops

import (
	"context"

	"github.com/hpungsan/ghar/internal/form"
	"github.com/hpungsan/ghar/internal/household"
	"github.com/hpungsan/ghar/internal/store"
)

// AddInput contains parameters for the Add operation.
// Exactly one of Domain or Path selects the form; Path follows navigation
// semantics and falls back to the general domain.
type AddInput struct {
	Domain string
	Path   string
	Fields household.RawInput
}

// AddOutput contains the result of the Add operation.
type AddOutput struct {
	SessionID    string        `json:"session_id"`
	Tag          household.Tag `json:"tag"`
	Key          string        `json:"storage_key"`
	Record       store.Record  `json:"record"`
	Count        int           `json:"count"`
	CloseAfterMS int64         `json:"close_after_ms"`
}

// Add runs one add-form submission.
func Add(ctx context.Context, eng *form.Engine, input AddInput) (*AddOutput, error) {
	var session *form.Session
	if input.Path != "" && input.Domain == "" {
		session = eng.Open(input.Path)
	} else {
		tag, err := ResolveDomain(input.Domain)
		if err != nil {
			return nil, err
		}
		session = eng.OpenTag(tag)
	}
	defer session.Close()

	fields := input.Fields
	if fields == nil {
		fields = household.RawInput{}
	}

	res, err := session.Submit(ctx, fields)
	if err != nil {
		return nil, err
	}

	return &AddOutput{
		SessionID:    res.SessionID,
		Tag:          res.Tag,
		Key:          res.Key,
		Record:       res.Record,
		Count:        res.Count,
		CloseAfterMS: res.CloseAfter.Milliseconds(),
	}, nil
}
