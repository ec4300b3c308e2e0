package ops

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/hpungsan/ghar/internal/errors"
	"github.com/hpungsan/ghar/internal/household"
)

func TestSchema_Formats(t *testing.T) {
	out, err := Schema(SchemaInput{Domain: "bill"})
	require.NoError(t, err)
	require.Equal(t, SchemaFormatJSON, out.Format)
	require.Equal(t, "bills", out.Schema.Key)

	var decoded household.Schema
	require.NoError(t, json.Unmarshal([]byte(out.Rendered), &decoded))
	require.Equal(t, out.Schema, decoded)

	out, err = Schema(SchemaInput{Domain: "/vehicles", Format: "YAML"})
	require.NoError(t, err)
	var fromYAML household.Schema
	require.NoError(t, yaml.Unmarshal([]byte(out.Rendered), &fromYAML))
	require.Equal(t, household.TagVehicle, fromYAML.Tag)
	require.Equal(t, household.GroupInsurance, fromYAML.Fields[4].Group)

	out, err = Schema(SchemaInput{Domain: "wifi", Format: "jsonschema"})
	require.NoError(t, err)
	var js map[string]any
	require.NoError(t, json.Unmarshal([]byte(out.Rendered), &js))
	require.Equal(t, "object", js["type"])
	require.Contains(t, js["required"], "networkName")
}

func TestSchema_Maintenance(t *testing.T) {
	out, err := Schema(SchemaInput{Domain: "maintenance"})
	require.NoError(t, err)
	require.Len(t, out.Schema.Fields, 3)
	require.Equal(t, "Maintenance Record", out.Schema.Title)
}

func TestSchema_Errors(t *testing.T) {
	_, err := Schema(SchemaInput{Domain: "bill", Format: "xml"})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = Schema(SchemaInput{Domain: "boats"})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}
