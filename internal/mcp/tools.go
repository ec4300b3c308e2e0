package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/ghar/internal/household"
	"github.com/hpungsan/ghar/internal/ops"
)

func domainNames() []string {
	names := make([]string, len(household.Tags))
	for i, t := range household.Tags {
		names[i] = string(t)
	}
	return names
}

func domainParam(required bool) mcp.ToolOption {
	opts := []mcp.PropertyOption{
		mcp.Description("Record domain: a tag (bill), storage key (bills), or route keyword (wifi)"),
	}
	if required {
		opts = append(opts, mcp.Required())
	}
	return mcp.WithString("domain", opts...)
}

func idParam(desc string) mcp.ToolOption {
	return mcp.WithNumber("id", mcp.Required(), mcp.Description(desc))
}

func fieldsParam(desc string, required bool) mcp.ToolOption {
	opts := []mcp.PropertyOption{mcp.Description(desc)}
	if required {
		opts = append(opts, mcp.Required())
	}
	return mcp.WithObject("fields", opts...)
}

var addToolDef = mcp.NewTool("record_add",
	mcp.WithDescription("Add a household record through the add form. Fields are the form values "+
		"(see record_schema); numbers and booleans may be given as JSON values or text. "+
		"Validation failures return VALIDATION_FAILED with the offending fields."),
	domainParam(false),
	mcp.WithString("path", mcp.Description("Navigation path used instead of domain, e.g. /bills. Unknown paths fall back to general items.")),
	fieldsParam("Form values keyed by field name", true),
)

var listToolDef = mcp.NewTool("record_list",
	mcp.WithDescription("List one domain's records. Passwords are masked unless reveal is set."),
	mcp.WithReadOnlyHintAnnotation(true),
	domainParam(true),
	mcp.WithString("sort", mcp.Description("Sort order"), mcp.Enum(household.SortOrders...)),
	mcp.WithString("search", mcp.Description("Case-insensitive substring over text fields")),
	mcp.WithObject("filters", mcp.Description("Exact field matches, e.g. {\"status\": \"pending\"}")),
	mcp.WithNumber("limit", mcp.Description("Page size (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Records to skip")),
	mcp.WithBoolean("include_legacy", mcp.Description("Wi-Fi only: include records saved by an older version")),
	mcp.WithBoolean("reveal", mcp.Description("Show password values")),
)

var fetchToolDef = mcp.NewTool("record_fetch",
	mcp.WithDescription("Fetch one record by id, with computed figures such as days until due or savings progress."),
	mcp.WithReadOnlyHintAnnotation(true),
	domainParam(true),
	idParam("Record id"),
	mcp.WithBoolean("reveal", mcp.Description("Show password values")),
)

var fetchManyToolDef = mcp.NewTool("record_fetch_many",
	mcp.WithDescription("Fetch several records in one call. Missing records are reported per item."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithArray("items", mcp.Required(),
		mcp.Description("References to fetch: [{\"domain\": \"bill\", \"id\": 123}]"),
		mcp.Items(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"domain": map[string]any{"type": "string"},
				"id":     map[string]any{"type": "integer"},
			},
			"required": []string{"domain", "id"},
		}),
	),
	mcp.WithBoolean("reveal", mcp.Description("Show password values")),
)

var updateToolDef = mcp.NewTool("record_update",
	mcp.WithDescription("Edit a record. Fields are merged over the stored values unless replace is set; "+
		"id and createdAt are kept, and vehicles keep their maintenance log."),
	domainParam(true),
	idParam("Record id"),
	fieldsParam("Changed form values", true),
	mcp.WithBoolean("replace", mcp.Description("Treat fields as the complete record")),
)

var bulkUpdateToolDef = mcp.NewTool("record_bulk_update",
	mcp.WithDescription("Apply the same field changes to several records of one domain, e.g. mark bills paid."),
	domainParam(true),
	mcp.WithArray("ids", mcp.Required(), mcp.Description("Record ids (max 100)"), mcp.Items(map[string]any{"type": "integer"})),
	fieldsParam("Changed form values", true),
)

var deleteToolDef = mcp.NewTool("record_delete",
	mcp.WithDescription("Delete one record. Remaining records keep their order."),
	mcp.WithDestructiveHintAnnotation(true),
	domainParam(true),
	idParam("Record id"),
)

var bulkDeleteToolDef = mcp.NewTool("record_bulk_delete",
	mcp.WithDescription("Delete several records of one domain in a single write."),
	mcp.WithDestructiveHintAnnotation(true),
	domainParam(true),
	mcp.WithArray("ids", mcp.Required(), mcp.Description("Record ids (max 100)"), mcp.Items(map[string]any{"type": "integer"})),
)

var schemaToolDef = mcp.NewTool("record_schema",
	mcp.WithDescription("Describe a domain's form fields. Use domain \"maintenance\" for vehicle service entries."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("domain", mcp.Required(), mcp.Description("Record domain or \"maintenance\"")),
	mcp.WithString("format", mcp.Description("Output format (default jsonschema)"),
		mcp.Enum(ops.SchemaFormatJSONSchema, ops.SchemaFormatJSON, ops.SchemaFormatYAML)),
)

var purgeToolDef = mcp.NewTool("record_purge",
	mcp.WithDescription("Permanently delete every record of a domain. Requires confirm=true."),
	mcp.WithDestructiveHintAnnotation(true),
	domainParam(true),
	mcp.WithBoolean("legacy", mcp.Description("Wi-Fi only: also clear records saved by an older version")),
	mcp.WithBoolean("confirm", mcp.Required(), mcp.Description("Must be true")),
)

var maintenanceToolDef = mcp.NewTool("vehicle_maintenance_add",
	mcp.WithDescription("Add a service entry (date, description, cost) to a vehicle's maintenance log."),
	mcp.WithNumber("vehicle_id", mcp.Required(), mcp.Description("Vehicle record id")),
	fieldsParam("Entry values: date (YYYY-MM-DD), description, cost", true),
)

var summaryToolDef = mcp.NewTool("household_summary",
	mcp.WithDescription("Household dashboard: record counts, bills due and overdue, monthly subscription "+
		"and bill totals, vehicle insurance status, savings progress."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var searchToolDef = mcp.NewTool("household_search",
	mcp.WithDescription("Search text fields across domains. Name matches rank first. Passwords are never searched."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("query", mcp.Required(), mcp.Description("Text to find")),
	mcp.WithArray("domains", mcp.Description("Restrict to these domains"), mcp.Items(map[string]any{"type": "string", "enum": domainNames()})),
	mcp.WithNumber("limit", mcp.Description("Page size (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Results to skip")),
)

var latestToolDef = mcp.NewTool("household_latest",
	mcp.WithDescription("Most recently added records across domains, newest first."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithArray("domains", mcp.Description("Restrict to these domains"), mcp.Items(map[string]any{"type": "string", "enum": domainNames()})),
	mcp.WithNumber("limit", mcp.Description("Number of records (default 10, max 50)")),
)

var inventoryToolDef = mcp.NewTool("household_inventory",
	mcp.WithDescription("Every storage key with its record count, including legacy and unknown keys."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var exportToolDef = mcp.NewTool("household_export",
	mcp.WithDescription("Export records to a JSONL file (all domains or one) or a CSV file (one domain). "+
		"Files go to ~/.ghar/exports unless the path is allowed by config."),
	mcp.WithString("path", mcp.Description("Output file (.jsonl or .csv)")),
	mcp.WithString("format", mcp.Description("File format (default jsonl)"), mcp.Enum(ops.FormatJSONL, ops.FormatCSV)),
	domainParam(false),
)

var importToolDef = mcp.NewTool("household_import",
	mcp.WithDescription("Import records from a JSONL export or a single-domain CSV file."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Input file (.jsonl or .csv)")),
	mcp.WithString("mode", mcp.Description("append skips ids that already exist; replace clears each imported domain first"),
		mcp.Enum(string(ops.ImportModeAppend), string(ops.ImportModeReplace))),
	domainParam(false),
)
