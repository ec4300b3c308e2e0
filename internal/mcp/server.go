// Package mcp exposes household records as Model Context Protocol tools over stdio.
package mcp

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/ghar/internal/config"
	"github.com/hpungsan/ghar/internal/form"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"record_add": {
		def:     addToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAdd },
	},
	"record_list": {
		def:     listToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"record_fetch": {
		def:     fetchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFetch },
	},
	"record_fetch_many": {
		def:     fetchManyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFetchMany },
	},
	"record_update": {
		def:     updateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUpdate },
	},
	"record_bulk_update": {
		def:     bulkUpdateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBulkUpdate },
	},
	"record_delete": {
		def:     deleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDelete },
	},
	"record_bulk_delete": {
		def:     bulkDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBulkDelete },
	},
	"record_schema": {
		def:     schemaToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSchema },
	},
	"record_purge": {
		def:     purgeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePurge },
	},
	"vehicle_maintenance_add": {
		def:     maintenanceToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMaintenance },
	},
	"household_summary": {
		def:     summaryToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSummary },
	},
	"household_search": {
		def:     searchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSearch },
	},
	"household_latest": {
		def:     latestToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLatest },
	},
	"household_inventory": {
		def:     inventoryToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleInventory },
	},
	"household_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"household_import": {
		def:     importToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImport },
	},
}

// AllToolNames returns every tool name, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns the names that are neither a tool nor a tool group.
func ValidateDisabledTools(names []string) []string {
	groups := make(map[string]bool)
	for name := range toolRegistry {
		groups[GroupForTool(name)] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok && !groups[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GroupForTool extracts the group from a tool name.
// Tool names follow the pattern "group_action" (e.g., "record_add" → "record").
func GroupForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// NewServer creates a new MCP server with Ghar tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration; a
// disabled group name (e.g. "household") excludes every tool in it.
func NewServer(eng *form.Engine, cfg *config.Config, logger *slog.Logger, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"ghar",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	h := NewHandlers(eng, cfg, logger)

	disabled := make(map[string]bool)
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] || disabled[GroupForTool(name)] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(eng *form.Engine, cfg *config.Config, logger *slog.Logger, version string) error {
	s := NewServer(eng, cfg, logger, version)
	return server.ServeStdio(s)
}
