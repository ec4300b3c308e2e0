package ops

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hpungsan/ghar/internal/errors"
	"github.com/hpungsan/ghar/internal/household"
)

// Schema output formats
const (
	SchemaFormatJSON       = "json"
	SchemaFormatYAML       = "yaml"
	SchemaFormatJSONSchema = "jsonschema"
)

// SchemaInput contains parameters for the Schema operation.
type SchemaInput struct {
	Domain string // required; "maintenance" selects the vehicle maintenance entry
	Format string // json (default), yaml, jsonschema
}

// SchemaOutput contains the result of the Schema operation.
type SchemaOutput struct {
	Schema household.Schema `json:"schema"`
	Format string           `json:"format"`
	// Rendered is the schema encoded in Format.
	Rendered string `json:"rendered"`
}

// Schema describes the add-form fields of a domain.
func Schema(input SchemaInput) (*SchemaOutput, error) {
	format := strings.ToLower(strings.TrimSpace(input.Format))
	if format == "" {
		format = SchemaFormatJSON
	}

	var schema household.Schema
	if strings.EqualFold(strings.TrimSpace(input.Domain), "maintenance") {
		schema = household.MaintenanceSchema()
	} else {
		tag, err := ResolveDomain(input.Domain)
		if err != nil {
			return nil, err
		}
		schema = household.SchemaFor(tag)
	}

	var data []byte
	var err error
	switch format {
	case SchemaFormatJSON:
		data, err = json.MarshalIndent(schema, "", "  ")
	case SchemaFormatYAML:
		data, err = yaml.Marshal(schema)
	case SchemaFormatJSONSchema:
		data, err = json.MarshalIndent(household.FieldsJSONSchema(schema), "", "  ")
	default:
		return nil, errors.NewInvalidRequest(fmt.Sprintf("format must be one of: %s, %s, %s",
			SchemaFormatJSON, SchemaFormatYAML, SchemaFormatJSONSchema))
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	return &SchemaOutput{
		Schema:   schema,
		Format:   format,
		Rendered: string(data),
	}, nil
}
