package household

import (
	"github.com/google/jsonschema-go/jsonschema"
)

// JSONSchema describes the raw form input accepted for tag. Every value is a
// string, exactly as a form would submit it.
func JSONSchema(tag Tag) *jsonschema.Schema {
	return FieldsJSONSchema(SchemaFor(tag))
}

// FieldsJSONSchema describes the raw input accepted by an arbitrary field schema.
func FieldsJSONSchema(s Schema) *jsonschema.Schema {
	out := &jsonschema.Schema{
		Type:        "object",
		Title:       s.Title,
		Description: "Form fields for a new " + s.Title,
		Properties:  make(map[string]*jsonschema.Schema, len(s.Fields)),
	}
	for _, f := range s.Fields {
		out.Properties[f.Key] = fieldSchema(f)
		if f.Required {
			out.Required = append(out.Required, f.Key)
		}
	}
	return out
}

func fieldSchema(f Field) *jsonschema.Schema {
	p := &jsonschema.Schema{
		Type:        "string",
		Description: f.Label,
	}
	switch f.Kind {
	case KindDate:
		p.Format = "date"
	case KindNumber:
		p.Pattern = `^\s*-?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?\s*$`
	case KindCheckbox:
		p.Enum = []any{"on", "true", "1", "yes", "off", "false", "0", "no", ""}
	case KindSelect:
		p.Enum = make([]any, len(f.Options))
		for i, o := range f.Options {
			p.Enum[i] = o.Value
		}
	}
	if f.Group != "" {
		p.Description += " (" + f.Group + ")"
	}
	return p
}
