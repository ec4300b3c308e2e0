package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/ghar/internal/config"
	"github.com/hpungsan/ghar/internal/errors"
	"github.com/hpungsan/ghar/internal/form"
	"github.com/hpungsan/ghar/internal/household"
	"github.com/hpungsan/ghar/internal/logging"
	"github.com/hpungsan/ghar/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	eng    *form.Engine
	cfg    *config.Config
	logger *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(eng *form.Engine, cfg *config.Config, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handlers{eng: eng, cfg: cfg, logger: logger}
}

// Request types for each tool

// AddRequest represents the arguments for record_add.
type AddRequest struct {
	Domain string         `json:"domain,omitempty"`
	Path   string         `json:"path,omitempty"`
	Fields map[string]any `json:"fields"`
}

// ListRequest represents the arguments for record_list.
type ListRequest struct {
	Domain        string         `json:"domain"`
	Sort          string         `json:"sort,omitempty"`
	Search        string         `json:"search,omitempty"`
	Filters       map[string]any `json:"filters,omitempty"`
	Limit         int            `json:"limit,omitempty"`
	Offset        int            `json:"offset,omitempty"`
	IncludeLegacy bool           `json:"include_legacy,omitempty"`
	Reveal        bool           `json:"reveal,omitempty"`
}

// FetchRequest represents the arguments for record_fetch.
type FetchRequest struct {
	Domain string `json:"domain"`
	ID     int64  `json:"id"`
	Reveal bool   `json:"reveal,omitempty"`
}

// FetchManyRequest represents the arguments for record_fetch_many.
type FetchManyRequest struct {
	Items  []ops.FetchManyRef `json:"items"`
	Reveal bool               `json:"reveal,omitempty"`
}

// UpdateRequest represents the arguments for record_update.
type UpdateRequest struct {
	Domain  string         `json:"domain"`
	ID      int64          `json:"id"`
	Fields  map[string]any `json:"fields"`
	Replace bool           `json:"replace,omitempty"`
}

// BulkUpdateRequest represents the arguments for record_bulk_update.
type BulkUpdateRequest struct {
	Domain string         `json:"domain"`
	IDs    []int64        `json:"ids"`
	Fields map[string]any `json:"fields"`
}

// DeleteRequest represents the arguments for record_delete.
type DeleteRequest struct {
	Domain string `json:"domain"`
	ID     int64  `json:"id"`
}

// BulkDeleteRequest represents the arguments for record_bulk_delete.
type BulkDeleteRequest struct {
	Domain string  `json:"domain"`
	IDs    []int64 `json:"ids"`
}

// SchemaRequest represents the arguments for record_schema.
type SchemaRequest struct {
	Domain string `json:"domain"`
	Format string `json:"format,omitempty"`
}

// PurgeRequest represents the arguments for record_purge.
type PurgeRequest struct {
	Domain  string `json:"domain"`
	Legacy  bool   `json:"legacy,omitempty"`
	Confirm bool   `json:"confirm"`
}

// MaintenanceRequest represents the arguments for vehicle_maintenance_add.
type MaintenanceRequest struct {
	VehicleID int64          `json:"vehicle_id"`
	Fields    map[string]any `json:"fields"`
}

// SearchRequest represents the arguments for household_search.
type SearchRequest struct {
	Query   string   `json:"query"`
	Domains []string `json:"domains,omitempty"`
	Limit   int      `json:"limit,omitempty"`
	Offset  int      `json:"offset,omitempty"`
}

// LatestRequest represents the arguments for household_latest.
type LatestRequest struct {
	Domains []string `json:"domains,omitempty"`
	Limit   int      `json:"limit,omitempty"`
}

// ExportRequest represents the arguments for household_export.
type ExportRequest struct {
	Path   string `json:"path,omitempty"`
	Format string `json:"format,omitempty"`
	Domain string `json:"domain,omitempty"`
}

// ImportRequest represents the arguments for household_import.
type ImportRequest struct {
	Path   string `json:"path"`
	Mode   string `json:"mode,omitempty"`
	Domain string `json:"domain,omitempty"`
}

// Handler implementations

// HandleAdd handles the record_add tool call.
func (h *Handlers) HandleAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AddRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	var tag household.Tag
	if input.Domain == "" && input.Path != "" {
		tag = household.ResolveTag(input.Path)
	} else if tag, err = ops.ResolveDomain(input.Domain); err != nil {
		return errorResult(err), nil
	}
	if err := h.checkEnabled(tag); err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Add(h.ctx(ctx), h.eng, ops.AddInput{
		Domain: input.Domain,
		Path:   input.Path,
		Fields: rawFields(input.Fields),
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleList handles the record_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if err := h.checkDomain(input.Domain); err != nil {
		return errorResult(err), nil
	}

	result, err := ops.List(h.ctx(ctx), h.eng.Store(), ops.ListInput{
		Domain:        input.Domain,
		Sort:          input.Sort,
		Search:        input.Search,
		Filters:       rawFilters(input.Filters),
		Limit:         input.Limit,
		Offset:        input.Offset,
		IncludeLegacy: input.IncludeLegacy,
		Reveal:        input.Reveal,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleFetch handles the record_fetch tool call.
func (h *Handlers) HandleFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FetchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if err := h.checkDomain(input.Domain); err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Fetch(h.ctx(ctx), h.eng.Store(), h.eng.Now(), ops.FetchInput{
		Domain: input.Domain,
		ID:     input.ID,
		Reveal: input.Reveal,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleFetchMany handles the record_fetch_many tool call.
func (h *Handlers) HandleFetchMany(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FetchManyRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	for i, ref := range input.Items {
		if err := h.checkDomain(ref.Domain); err != nil {
			return errorResult(fmt.Errorf("items[%d]: %w", i, err)), nil
		}
	}

	result, err := ops.FetchMany(h.ctx(ctx), h.eng.Store(), h.eng.Now(), ops.FetchManyInput{
		Items:  input.Items,
		Reveal: input.Reveal,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleUpdate handles the record_update tool call.
func (h *Handlers) HandleUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UpdateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if err := h.checkDomain(input.Domain); err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Update(h.ctx(ctx), h.eng, ops.UpdateInput{
		Domain:  input.Domain,
		ID:      input.ID,
		Fields:  rawFields(input.Fields),
		Replace: input.Replace,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleBulkUpdate handles the record_bulk_update tool call.
func (h *Handlers) HandleBulkUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[BulkUpdateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if err := h.checkDomain(input.Domain); err != nil {
		return errorResult(err), nil
	}

	result, err := ops.BulkUpdate(h.ctx(ctx), h.eng, ops.BulkUpdateInput{
		Domain: input.Domain,
		IDs:    input.IDs,
		Fields: rawFields(input.Fields),
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDelete handles the record_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DeleteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if err := h.checkDomain(input.Domain); err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Delete(h.ctx(ctx), h.eng, ops.DeleteInput{
		Domain: input.Domain,
		ID:     input.ID,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleBulkDelete handles the record_bulk_delete tool call.
func (h *Handlers) HandleBulkDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[BulkDeleteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if err := h.checkDomain(input.Domain); err != nil {
		return errorResult(err), nil
	}

	result, err := ops.BulkDelete(h.ctx(ctx), h.eng.Store(), ops.BulkDeleteInput{
		Domain: input.Domain,
		IDs:    input.IDs,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSchema handles the record_schema tool call. JSON Schema is the default
// format here since tool clients consume it directly.
func (h *Handlers) HandleSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SchemaRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Domain != "maintenance" {
		if err := h.checkDomain(input.Domain); err != nil {
			return errorResult(err), nil
		}
	}
	if input.Format == "" {
		input.Format = ops.SchemaFormatJSONSchema
	}

	result, err := ops.Schema(ops.SchemaInput{Domain: input.Domain, Format: input.Format})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePurge handles the record_purge tool call.
func (h *Handlers) HandlePurge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PurgeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if err := h.checkDomain(input.Domain); err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Purge(h.ctx(ctx), h.eng.Store(), ops.PurgeInput{
		Domain:  input.Domain,
		Legacy:  input.Legacy,
		Confirm: input.Confirm,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleMaintenance handles the vehicle_maintenance_add tool call.
func (h *Handlers) HandleMaintenance(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MaintenanceRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if err := h.checkEnabled(household.TagVehicle); err != nil {
		return errorResult(err), nil
	}

	result, err := ops.AppendMaintenance(h.ctx(ctx), h.eng, ops.AppendMaintenanceInput{
		VehicleID: input.VehicleID,
		Fields:    rawFields(input.Fields),
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSummary handles the household_summary tool call.
func (h *Handlers) HandleSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Summary(h.ctx(ctx), h.eng.Store(), h.eng.Now(), ops.SummaryInput{Exclude: h.disabledTags()})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSearch handles the household_search tool call.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	tags, err := h.resolveTags(input.Domains)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Search(h.ctx(ctx), h.eng.Store(), ops.SearchInput{
		Query:  input.Query,
		Tags:   tags,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleLatest handles the household_latest tool call.
func (h *Handlers) HandleLatest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LatestRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	tags, err := h.resolveTags(input.Domains)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Latest(h.ctx(ctx), h.eng.Store(), ops.LatestInput{Tags: tags, Limit: input.Limit})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleInventory handles the household_inventory tool call.
func (h *Handlers) HandleInventory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Inventory(h.ctx(ctx), h.eng.Store())
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleExport handles the household_export tool call. With any domain
// disabled, only single-domain exports are allowed.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Domain == "" && len(h.disabledTags()) > 0 {
		return errorResult(errors.NewInvalidRequest("domain is required while some domains are disabled")), nil
	}
	if input.Domain != "" {
		if err := h.checkDomain(input.Domain); err != nil {
			return errorResult(err), nil
		}
	}

	result, err := ops.Export(h.ctx(ctx), h.eng.Store(), h.cfg, h.eng.Now(), ops.ExportInput{
		Path:   input.Path,
		Format: input.Format,
		Domain: input.Domain,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleImport handles the household_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Domain != "" {
		if err := h.checkDomain(input.Domain); err != nil {
			return errorResult(err), nil
		}
	}

	result, err := ops.Import(h.ctx(ctx), h.eng.Store(), h.cfg, ops.ImportInput{
		Path:   input.Path,
		Mode:   ops.ImportMode(input.Mode),
		Domain: input.Domain,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// ctx attaches the server logger so ops log through it.
func (h *Handlers) ctx(ctx context.Context) context.Context {
	return logging.With(ctx, h.logger)
}

// checkDomain resolves domain and rejects domains disabled in config.
func (h *Handlers) checkDomain(domain string) error {
	tag, err := ops.ResolveDomain(domain)
	if err != nil {
		return err
	}
	return h.checkEnabled(tag)
}

func (h *Handlers) checkEnabled(tag household.Tag) error {
	if h.cfg != nil && h.cfg.TagDisabled(string(tag)) {
		return errors.NewInvalidRequest(fmt.Sprintf("domain %q is disabled", tag))
	}
	return nil
}

func (h *Handlers) disabledTags() []household.Tag {
	var tags []household.Tag
	for _, t := range household.Tags {
		if h.checkEnabled(t) != nil {
			tags = append(tags, t)
		}
	}
	return tags
}

// resolveTags maps requested domains to tags; none means every enabled domain.
func (h *Handlers) resolveTags(domains []string) ([]household.Tag, error) {
	if len(domains) == 0 {
		var tags []household.Tag
		for _, t := range household.Tags {
			if h.checkEnabled(t) == nil {
				tags = append(tags, t)
			}
		}
		return tags, nil
	}
	tags := make([]household.Tag, 0, len(domains))
	for _, d := range domains {
		tag, err := ops.ResolveDomain(d)
		if err != nil {
			return nil, err
		}
		if err := h.checkEnabled(tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var gErr *errors.GharError
	if stderrors.As(err, &gErr) {
		// Keep wrapper context such as "items[2]: " ahead of the message.
		message := gErr.Message
		if gErr.Code != errors.ErrInternal {
			message = strings.TrimSuffix(err.Error(), gErr.Error()) + gErr.Message
		}
		errorObj := map[string]any{
			"code":    gErr.Code,
			"message": message,
			"status":  gErr.Status,
		}
		if gErr.Code != errors.ErrInternal && gErr.Details != nil {
			errorObj["details"] = gErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
