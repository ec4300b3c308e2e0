package main

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/ghar/internal/config"
	"github.com/hpungsan/ghar/internal/errors"
	"github.com/hpungsan/ghar/internal/form"
	"github.com/hpungsan/ghar/internal/household"
	"github.com/hpungsan/ghar/internal/logging"
	"github.com/hpungsan/ghar/internal/ops"
	"github.com/hpungsan/ghar/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(eng *form.Engine, cfg *config.Config, logger *slog.Logger) *cli.App {
	if logger == nil {
		logger = logging.Default()
	}
	app := &cli.App{
		Name:    "ghar",
		Usage:   "Household records: bills, vehicles, subscriptions, passwords and more",
		Version: Version,
		Commands: []*cli.Command{
			addCmd(eng, logger),
			listCmd(eng),
			showCmd(eng),
			editCmd(eng, logger),
			deleteCmd(eng, logger),
			maintenanceCmd(eng, logger),
			schemaCmd(),
			summaryCmd(eng, cfg),
			searchCmd(eng),
			latestCmd(eng),
			inventoryCmd(eng),
			exportCmd(eng, cfg),
			importCmd(eng, cfg),
			purgeCmd(eng),
			serveCmd(eng, cfg, logger),
		},
	}
	// Field values such as notes may contain commas.
	app.DisableSliceFlagSeparator = true
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func setFlag() cli.Flag {
	return &cli.StringSliceFlag{Name: "set", Aliases: []string{"s"}, Usage: "Field value as key=value (repeatable)"}
}

func jsonFlag() cli.Flag {
	return &cli.StringFlag{Name: "json", Usage: "Field values as a JSON object, or - to read it from stdin"}
}

// addCmd creates the add command.
func addCmd(eng *form.Engine, logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Add a record through the domain's add form",
		ArgsUsage: "<domain>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Usage: "Navigation path instead of a domain, e.g. /dashboard/bills"},
			setFlag(),
			jsonFlag(),
		},
		Action: func(c *cli.Context) error {
			input := ops.AddInput{Path: c.String("path")}
			if c.NArg() > 0 {
				input.Domain = c.Args().First()
			}
			if input.Domain == "" && input.Path == "" {
				return outputError(errors.NewInvalidRequest("domain or --path is required"))
			}

			fields, err := readFields(c)
			if err != nil {
				return outputError(err)
			}
			input.Fields = fields

			output, err := ops.Add(logging.With(c.Context, logger), eng, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c, output)
		},
	}
}

// listCmd creates the list command.
func listCmd(eng *form.Engine) *cli.Command {
	return &cli.Command{
		Name:      "list",
		Usage:     "List a domain's records",
		ArgsUsage: "<domain>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "sort", Usage: "Sort order: " + strings.Join(household.SortOrders, "|")},
			&cli.StringFlag{Name: "search", Aliases: []string{"q"}, Usage: "Case-insensitive text search"},
			&cli.StringSliceFlag{Name: "filter", Aliases: []string{"f"}, Usage: "Exact field match as key=value (repeatable)"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Maximum results"},
			&cli.IntFlag{Name: "offset", Value: 0, Usage: "Pagination offset"},
			&cli.BoolFlag{Name: "legacy", Usage: "Wi-Fi only: include records saved by an older version"},
			&cli.BoolFlag{Name: "reveal", Usage: "Show password values"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("domain is required"))
			}
			filters, err := parsePairs(c.StringSlice("filter"))
			if err != nil {
				return outputError(err)
			}

			output, err := ops.List(c.Context, eng.Store(), ops.ListInput{
				Domain:        c.Args().First(),
				Sort:          c.String("sort"),
				Search:        c.String("search"),
				Filters:       filters,
				Limit:         c.Int("limit"),
				Offset:        c.Int("offset"),
				IncludeLegacy: c.Bool("legacy"),
				Reveal:        c.Bool("reveal"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c, output)
		},
	}
}

// showCmd creates the show command.
func showCmd(eng *form.Engine) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one record with computed details",
		ArgsUsage: "<domain> <id>...",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "reveal", Usage: "Show password values"},
		},
		Action: func(c *cli.Context) error {
			domain, ids, err := domainAndIDs(c)
			if err != nil {
				return outputError(err)
			}

			if len(ids) == 1 {
				output, err := ops.Fetch(c.Context, eng.Store(), eng.Now(), ops.FetchInput{
					Domain: domain,
					ID:     ids[0],
					Reveal: c.Bool("reveal"),
				})
				if err != nil {
					return outputError(err)
				}
				return outputJSON(c, output)
			}

			refs := make([]ops.FetchManyRef, len(ids))
			for i, id := range ids {
				refs[i] = ops.FetchManyRef{Domain: domain, ID: id}
			}
			output, err := ops.FetchMany(c.Context, eng.Store(), eng.Now(), ops.FetchManyInput{
				Items:  refs,
				Reveal: c.Bool("reveal"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// editCmd creates the edit command. Several ids apply the same change to each.
func editCmd(eng *form.Engine, logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Edit records (fields merge over stored values unless --replace)",
		ArgsUsage: "<domain> <id>...",
		Flags: []cli.Flag{
			setFlag(),
			jsonFlag(),
			&cli.BoolFlag{Name: "replace", Usage: "Treat the given fields as the complete record"},
		},
		Action: func(c *cli.Context) error {
			domain, ids, err := domainAndIDs(c)
			if err != nil {
				return outputError(err)
			}
			fields, err := readFields(c)
			if err != nil {
				return outputError(err)
			}
			if len(fields) == 0 {
				return outputError(errors.NewInvalidRequest("no fields to change"))
			}
			ctx := logging.With(c.Context, logger)

			if len(ids) == 1 {
				output, err := ops.Update(ctx, eng, ops.UpdateInput{
					Domain:  domain,
					ID:      ids[0],
					Fields:  fields,
					Replace: c.Bool("replace"),
				})
				if err != nil {
					return outputError(err)
				}
				return outputJSON(c, output)
			}

			if c.Bool("replace") {
				return outputError(errors.NewInvalidRequest("--replace takes a single id"))
			}
			output, err := ops.BulkUpdate(ctx, eng, ops.BulkUpdateInput{
				Domain: domain,
				IDs:    ids,
				Fields: fields,
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(eng *form.Engine, logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete records",
		ArgsUsage: "<domain> <id>...",
		Action: func(c *cli.Context) error {
			domain, ids, err := domainAndIDs(c)
			if err != nil {
				return outputError(err)
			}
			ctx := logging.With(c.Context, logger)

			if len(ids) == 1 {
				output, err := ops.Delete(ctx, eng, ops.DeleteInput{Domain: domain, ID: ids[0]})
				if err != nil {
					return outputError(err)
				}
				return outputJSON(c, output)
			}

			output, err := ops.BulkDelete(ctx, eng.Store(), ops.BulkDeleteInput{Domain: domain, IDs: ids})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// maintenanceCmd creates the maintenance command.
func maintenanceCmd(eng *form.Engine, logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:      "maintenance",
		Usage:     "Add a service entry to a vehicle's maintenance log",
		ArgsUsage: "<vehicle-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "date", Aliases: []string{"d"}, Usage: "Service date (YYYY-MM-DD)"},
			&cli.StringFlag{Name: "description", Usage: "What was done"},
			&cli.StringFlag{Name: "cost", Usage: "Cost in dollars"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("vehicle id is required"))
			}
			id, err := ops.ParseID(c.Args().First())
			if err != nil {
				return outputError(err)
			}

			output, err := ops.AppendMaintenance(logging.With(c.Context, logger), eng, ops.AppendMaintenanceInput{
				VehicleID: id,
				Fields: household.RawInput{
					"date":        c.String("date"),
					"description": c.String("description"),
					"cost":        c.String("cost"),
				},
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c, output)
		},
	}
}

// schemaCmd creates the schema command.
func schemaCmd() *cli.Command {
	return &cli.Command{
		Name:      "schema",
		Usage:     "Print a domain's form fields",
		ArgsUsage: "<domain|maintenance>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Value: ops.SchemaFormatYAML, Usage: "Output format: json|yaml|jsonschema"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("domain is required"))
			}

			output, err := ops.Schema(ops.SchemaInput{Domain: c.Args().First(), Format: c.String("format")})
			if err != nil {
				return outputError(err)
			}

			_, err = fmt.Fprintln(c.App.Writer, strings.TrimRight(output.Rendered, "\n"))
			return err
		},
	}
}

// summaryCmd creates the summary command.
func summaryCmd(eng *form.Engine, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "summary",
		Usage: "Show the household dashboard figures",
		Action: func(c *cli.Context) error {
			var exclude []household.Tag
			for _, t := range household.Tags {
				if cfg != nil && cfg.TagDisabled(string(t)) {
					exclude = append(exclude, t)
				}
			}

			output, err := ops.Summary(c.Context, eng.Store(), eng.Now(), ops.SummaryInput{Exclude: exclude})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c, output)
		},
	}
}

// searchCmd creates the search command.
func searchCmd(eng *form.Engine) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search text across domains",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "domain", Usage: "Restrict to a domain (repeatable)"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Maximum results"},
			&cli.IntFlag{Name: "offset", Value: 0, Usage: "Pagination offset"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("query is required"))
			}
			tags, err := parseDomains(c.StringSlice("domain"))
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Search(c.Context, eng.Store(), ops.SearchInput{
				Query:  strings.Join(c.Args().Slice(), " "),
				Tags:   tags,
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c, output)
		},
	}
}

// latestCmd creates the latest command.
func latestCmd(eng *form.Engine) *cli.Command {
	return &cli.Command{
		Name:  "latest",
		Usage: "Show the most recently added records",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "domain", Usage: "Restrict to a domain (repeatable)"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 10, Usage: "Maximum results"},
		},
		Action: func(c *cli.Context) error {
			tags, err := parseDomains(c.StringSlice("domain"))
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Latest(c.Context, eng.Store(), ops.LatestInput{Tags: tags, Limit: c.Int("limit")})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c, output)
		},
	}
}

// inventoryCmd creates the inventory command.
func inventoryCmd(eng *form.Engine) *cli.Command {
	return &cli.Command{
		Name:    "inventory",
		Aliases: []string{"keys"},
		Usage:   "List storage keys with record counts",
		Action: func(c *cli.Context) error {
			output, err := ops.Inventory(c.Context, eng.Store())
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c, output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(eng *form.Engine, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export records to a JSONL or CSV file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output file path"},
			&cli.StringFlag{Name: "format", Value: ops.FormatJSONL, Usage: "File format: jsonl|csv"},
			&cli.StringFlag{Name: "domain", Usage: "Export one domain (required for csv)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, eng.Store(), cfg, eng.Now(), ops.ExportInput{
				Path:   c.String("path"),
				Format: c.String("format"),
				Domain: c.String("domain"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c, output)
		},
	}
}

// importCmd creates the import command.
func importCmd(eng *form.Engine, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import records from a JSONL or CSV file",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: string(ops.ImportModeAppend), Usage: "Import mode: append|replace"},
			&cli.StringFlag{Name: "domain", Usage: "Target domain (required for csv)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("path is required"))
			}

			output, err := ops.Import(c.Context, eng.Store(), cfg, ops.ImportInput{
				Path:   c.Args().First(),
				Mode:   ops.ImportMode(c.String("mode")),
				Domain: c.String("domain"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c, output)
		},
	}
}

// purgeCmd creates the purge command.
func purgeCmd(eng *form.Engine) *cli.Command {
	return &cli.Command{
		Name:      "purge",
		Usage:     "Permanently delete every record of a domain",
		ArgsUsage: "<domain>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Confirm the purge"},
			&cli.BoolFlag{Name: "legacy", Usage: "Wi-Fi only: also clear records saved by an older version"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("domain is required"))
			}

			output, err := ops.Purge(c.Context, eng.Store(), ops.PurgeInput{
				Domain:  c.Args().First(),
				Legacy:  c.Bool("legacy"),
				Confirm: c.Bool("yes"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c, output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(eng *form.Engine, cfg *config.Config, logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web dashboard",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Address to listen on (default from config)"},
			&cli.IntFlag{Name: "port", Usage: "Port to listen on (default from config)"},
		},
		Action: func(c *cli.Context) error {
			bind, port := cfg.WebBind, cfg.WebPort
			if c.IsSet("bind") {
				bind = c.String("bind")
			}
			if c.IsSet("port") {
				port = c.Int("port")
			}

			srv, err := web.NewServer(eng, cfg, logger, Version, bind, port)
			if err != nil {
				return outputError(err)
			}
			return web.Run(srv, logger)
		},
	}
}

// Helper functions

// outputJSON marshals result to the app's writer as JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var gErr *errors.GharError
	if stderrors.As(err, &gErr) {
		msg := fmt.Sprintf("[%s] %s", gErr.Code, gErr.Message)
		for _, f := range errors.Fields(err) {
			msg += fmt.Sprintf("\n  %s: %s", f.Field, f.Message)
		}
		return cli.Exit(msg, 1)
	}
	return cli.Exit(err.Error(), 1)
}

// domainAndIDs reads "<domain> <id>..." positional arguments.
func domainAndIDs(c *cli.Context) (string, []int64, error) {
	if c.NArg() < 2 {
		return "", nil, errors.NewInvalidRequest("domain and id are required")
	}
	args := c.Args().Slice()
	ids := make([]int64, 0, len(args)-1)
	for _, a := range args[1:] {
		id, err := ops.ParseID(a)
		if err != nil {
			return "", nil, err
		}
		ids = append(ids, id)
	}
	return args[0], ids, nil
}

// readFields merges --json (applied first) and --set values.
func readFields(c *cli.Context) (household.RawInput, error) {
	fields := household.RawInput{}

	if src := c.String("json"); src != "" {
		data := []byte(src)
		if src == "-" {
			var err error
			if data, err = io.ReadAll(c.App.Reader); err != nil {
				return nil, errors.NewInternal(err)
			}
		}
		parsed, err := parseJSONFields(data)
		if err != nil {
			return nil, err
		}
		for k, v := range parsed {
			fields[k] = v
		}
	}

	pairs, err := parsePairs(c.StringSlice("set"))
	if err != nil {
		return nil, err
	}
	for k, v := range pairs {
		fields[k] = v
	}
	return fields, nil
}

// parseJSONFields decodes a JSON object of field values. Numbers and booleans
// become their text form; nulls are dropped.
func parseJSONFields(data []byte) (household.RawInput, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("fields must be a JSON object: %v", err))
	}
	raw := make(household.RawInput, len(obj))
	for k, v := range obj {
		switch x := v.(type) {
		case nil:
		case string:
			raw[k] = x
		default:
			raw[k] = fmt.Sprint(x)
		}
	}
	return raw, nil
}

// parsePairs splits key=value arguments. Values may contain '='.
func parsePairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("expected key=value, got %q", p))
		}
		out[k] = v
	}
	return out, nil
}

// parseDomains resolves domain names to tags.
func parseDomains(domains []string) ([]household.Tag, error) {
	if len(domains) == 0 {
		return nil, nil
	}
	tags := make([]household.Tag, 0, len(domains))
	for _, d := range domains {
		tag, err := ops.ResolveDomain(d)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}
