package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/hpungsan/ghar/internal/errors"
	"github.com/hpungsan/ghar/internal/household"
	"github.com/hpungsan/ghar/internal/ops"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "dashboard", a domain route, or "search"
	Domains []NavItem

	// RefreshURL, when set, sends the browser there after RefreshSec seconds.
	RefreshURL string
	RefreshSec int
}

// NavItem is one domain link in the navigation bar.
type NavItem struct {
	Route string
	Title string
}

// DashboardPageData is the template data for the dashboard.
type DashboardPageData struct {
	PageData
	Summary *ops.SummaryOutput
	Latest  []ops.LatestItem
	Counts  []DomainCount
}

// DomainCount is one tile on the dashboard.
type DomainCount struct {
	Route string
	Title string
	Count int
}

// ListPageData is the template data for a domain list page.
type ListPageData struct {
	PageData
	Tag        household.Tag
	Route      string
	Columns    []string
	Rows       []ListRow
	Pagination ops.Pagination
	Sort       string
	Sorts      []string
	Query      string
	Legacy     int
}

// ListRow is one record in a list table.
type ListRow struct {
	ID    int64
	Name  string
	Cells []string
}

// FormPageData is the template data for the add and edit forms.
type FormPageData struct {
	PageData
	Route   string
	Action  string
	Schema  household.Schema
	Values  household.RawInput
	Errors  map[string]string
	Message string
	Editing bool

	// Saved is set once a submission has been stored; Next is where the form closes to.
	Saved bool
	Next  string
}

// DetailPageData is the template data for a record detail page.
type DetailPageData struct {
	PageData
	Route       string
	Record      *ops.FetchOutput
	DisplayName string
	Rows        []DetailRow
	Details     []DetailRow
	Notes       template.HTML
	Maintenance []MaintenanceRow
	Revealed    bool
}

// DetailRow is one label/value pair on the detail page.
type DetailRow struct {
	Label string
	Value string
}

// MaintenanceRow is one vehicle service entry.
type MaintenanceRow struct {
	Date        string
	Description string
	Cost        string
}

// SearchPageData is the template data for the search page.
type SearchPageData struct {
	PageData
	Query      string
	Items      []ops.SearchResultItem
	Pagination ops.Pagination
	HasQuery   bool
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
	logger    *slog.Logger
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string, logger *slog.Logger) *Renderer {
	funcMap := template.FuncMap{
		"add":        func(a, b int) int { return a + b },
		"sub":        func(a, b int) int { return a - b },
		"money":      formatMoney,
		"formatTime": formatTime,
		"safeHTML":   func(s string) template.HTML { return template.HTML(s) },
		"routeOf":    func(t household.Tag) string { return t.Route() },
		"titleOf":    func(t household.Tag) string { return t.Title() },
	}

	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"dashboard": "dashboard.html",
		"list":      "list.html",
		"form":      "form.html",
		"detail":    "detail.html",
		"search":    "search.html",
		"error":     "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
		logger:    logger,
	}
}

// page fills the fields shared by every page.
func (r *Renderer) page(title, nav string, disabled func(household.Tag) bool) PageData {
	pd := PageData{Title: title, Version: r.version, Nav: nav}
	for _, t := range household.Tags {
		if disabled != nil && disabled(t) {
			continue
		}
		pd.Domains = append(pd.Domains, NavItem{Route: t.Route(), Title: t.Title()})
	}
	return pd
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, req *http.Request, name string, data any) {
	r.renderPageStatus(w, req, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
// For htmx requests, only the "content" block is rendered to avoid duplicating the layout.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	block := "layout"
	if isHTMX(req) {
		block = "content"
	}
	r.renderBlock(w, status, name, block, data)
}

// renderBlock renders a specific named block from a page template.
func (r *Renderer) renderBlock(w http.ResponseWriter, status int, page, block string, data any) {
	t, ok := r.templates[page]
	if !ok {
		r.logger.Error("template not found", "template", page)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		r.logger.Error("template execution failed", "template", page, "block", block, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	var gErr *errors.GharError
	if !stderrors.As(err, &gErr) {
		gErr = errors.NewInternal(err)
	}
	if gErr.Code == errors.ErrInternal {
		r.logger.Error("request failed", "path", req.URL.Path, "error", err)
	}

	status := gErr.Status
	message := gErr.Message

	if isHTMX(req) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprintf(w, `<div class="error-message">%s</div>`, template.HTMLEscapeString(message))
		return
	}

	if wantsJSON(req) {
		body := map[string]any{
			"code":    string(gErr.Code),
			"message": message,
			"status":  status,
		}
		if fields := errors.Fields(gErr); fields != nil {
			body["fields"] = fields
		}
		renderJSON(w, status, map[string]any{"error": body})
		return
	}

	r.renderPageStatus(w, req, status, "error", ErrorPageData{
		PageData:   r.page(fmt.Sprintf("Error %d", status), "", nil),
		StatusCode: status,
		Message:    message,
	})
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func isHTMX(req *http.Request) bool {
	return req != nil && req.Header.Get("HX-Request") == "true"
}

func wantsJSON(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Accept"), "application/json")
}

// renderMarkdown converts free-text notes to HTML using goldmark.
// Raw HTML in the input is not passed through.
func renderMarkdown(md string) template.HTML {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// formatMoney formats an amount with two decimals and comma thousands separators.
func formatMoney(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := strconv.FormatFloat(v, 'f', 2, 64)
	whole, frac, _ := strings.Cut(s, ".")

	var out strings.Builder
	if neg {
		out.WriteByte('-')
	}
	remainder := len(whole) % 3
	if remainder > 0 {
		out.WriteString(whole[:remainder])
	}
	for i := remainder; i < len(whole); i += 3 {
		if i > 0 {
			out.WriteByte(',')
		}
		out.WriteString(whole[i : i+3])
	}
	out.WriteByte('.')
	out.WriteString(frac)
	return out.String()
}

// formatTime formats an RFC 3339 timestamp as "2006-01-02 15:04" UTC.
// Unparseable values are shown as stored.
func formatTime(s string) string {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return s
	}
	return t.UTC().Format("2006-01-02 15:04")
}
