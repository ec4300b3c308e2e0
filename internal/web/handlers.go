package web

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"mime"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/hpungsan/ghar/internal/config"
	"github.com/hpungsan/ghar/internal/errors"
	"github.com/hpungsan/ghar/internal/form"
	"github.com/hpungsan/ghar/internal/household"
	"github.com/hpungsan/ghar/internal/ops"
	"github.com/hpungsan/ghar/internal/store"
)

// dashboardLatest is how many recent records the dashboard lists.
const dashboardLatest = 5

// listColumns caps the number of field columns in a list table.
const listColumns = 4

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	eng      *form.Engine
	cfg      *config.Config
	logger   *slog.Logger
	renderer *Renderer
}

// HandleDashboard handles GET / with the household summary.
func (h *Handlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := ops.Summary(r.Context(), h.eng.Store(), h.eng.Now(), ops.SummaryInput{Exclude: h.disabledTags()})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	latest, err := ops.Latest(r.Context(), h.eng.Store(), ops.LatestInput{Tags: h.enabledTags(), Limit: dashboardLatest})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{
			"summary": summary,
			"latest":  latest.Items,
		})
		return
	}

	counts := make([]DomainCount, 0, len(household.Tags))
	for _, t := range h.enabledTags() {
		counts = append(counts, DomainCount{Route: t.Route(), Title: t.Title(), Count: summary.Counts[t]})
	}

	h.renderer.renderPage(w, r, "dashboard", DashboardPageData{
		PageData: h.page("Dashboard", "dashboard"),
		Summary:  summary,
		Latest:   latest.Items,
		Counts:   counts,
	})
}

// HandleList handles GET /{domain}: one page of a domain's records.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	tag, err := h.domain(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	q := r.URL.Query()
	result, err := ops.List(r.Context(), h.eng.Store(), ops.ListInput{
		Domain:        string(tag),
		Sort:          q.Get("sort"),
		Search:        q.Get("q"),
		Limit:         parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset:        parseIntParam(r, "offset", 0),
		IncludeLegacy: tag == household.TagWifi,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	schema := household.SchemaFor(tag)
	cols := columnFields(schema)
	data := ListPageData{
		PageData:   h.page(schema.Title+"s", tag.Route()),
		Tag:        tag,
		Route:      tag.Route(),
		Pagination: result.Pagination,
		Sort:       q.Get("sort"),
		Sorts:      household.SortOrders,
		Query:      q.Get("q"),
		Legacy:     result.LegacyCount,
	}
	for _, f := range cols {
		data.Columns = append(data.Columns, f.Label)
	}
	for _, rec := range result.Items {
		id, _ := rec.ID()
		raw := household.ToRawInput(tag, rec)
		row := ListRow{ID: id, Name: household.DisplayName(tag, rec)}
		for _, f := range cols {
			row.Cells = append(row.Cells, displayValue(f, raw[f.Key]))
		}
		data.Rows = append(data.Rows, row)
	}

	if r.Header.Get("HX-Target") == "rows" {
		h.renderer.renderBlock(w, http.StatusOK, "list", "list-rows", data)
		return
	}
	h.renderer.renderPage(w, r, "list", data)
}

// HandleNew handles GET /{domain}/new: an empty add form.
func (h *Handlers) HandleNew(w http.ResponseWriter, r *http.Request) {
	tag, err := h.domain(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, household.SchemaFor(tag))
		return
	}

	h.renderer.renderPage(w, r, "form", h.formData(tag, household.RawInput{}, false, 0))
}

// HandleSubmit handles POST /{domain}: one add-form submission.
func (h *Handlers) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	tag, err := h.domain(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	raw, err := rawFromRequest(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	out, err := ops.Add(r.Context(), h.eng, ops.AddInput{Domain: string(tag), Fields: raw})
	if err != nil {
		h.renderFormError(w, r, h.formData(tag, raw, false, 0), err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusCreated, out)
		return
	}

	data := h.formData(tag, household.RawInput{}, false, 0)
	data.Saved = true
	data.Next = "/" + tag.Route()
	data.RefreshURL = data.Next
	data.RefreshSec = int(math.Ceil(float64(out.CloseAfterMS) / 1000))
	h.renderer.renderPage(w, r, "form", data)
}

// HandleDetail handles GET /{domain}/{id}: one record with its computed figures.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	tag, id, err := h.domainAndID(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	reveal := parseBoolParam(r, "reveal")
	out, err := ops.Fetch(r.Context(), h.eng.Store(), h.eng.Now(), ops.FetchInput{Domain: string(tag), ID: id, Reveal: reveal})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, out)
		return
	}

	name := household.DisplayName(tag, out.Record)
	data := DetailPageData{
		PageData:    h.page(name, tag.Route()),
		Route:       tag.Route(),
		Record:      out,
		DisplayName: name,
		Details:     detailRows(out.Details),
		Revealed:    reveal,
	}

	raw := household.ToRawInput(tag, out.Record)
	var notes []string
	for _, f := range household.SchemaFor(tag).Fields {
		v := raw[f.Key]
		if f.Kind == household.KindTextarea {
			if strings.TrimSpace(v) != "" {
				notes = append(notes, v)
			}
			continue
		}
		if v == "" {
			continue
		}
		data.Rows = append(data.Rows, DetailRow{Label: f.Label, Value: displayValue(f, v)})
	}
	data.Notes = renderMarkdown(strings.Join(notes, "\n\n"))

	if tag == household.TagVehicle {
		if e, err := household.FromRecord(tag, out.Record); err == nil {
			for _, m := range e.(*household.Vehicle).MaintenanceRecords {
				data.Maintenance = append(data.Maintenance, MaintenanceRow{
					Date:        m.Date,
					Description: m.Description,
					Cost:        formatMoney(m.Cost),
				})
			}
		}
	}

	h.renderer.renderPage(w, r, "detail", data)
}

// HandleEditForm handles GET /{domain}/{id}/edit: the form prefilled with stored values.
func (h *Handlers) HandleEditForm(w http.ResponseWriter, r *http.Request) {
	tag, id, err := h.domainAndID(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	out, err := ops.Fetch(r.Context(), h.eng.Store(), h.eng.Now(), ops.FetchInput{Domain: string(tag), ID: id, Reveal: true})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "form", h.formData(tag, household.ToRawInput(tag, out.Record), true, id))
}

// HandleEdit handles POST /{domain}/{id}. Form posts carry every field and
// replace the record; JSON bodies are patches merged over the stored values.
func (h *Handlers) HandleEdit(w http.ResponseWriter, r *http.Request) {
	tag, id, err := h.domainAndID(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	raw, err := rawFromRequest(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	out, err := ops.Update(r.Context(), h.eng, ops.UpdateInput{
		Domain:  string(tag),
		ID:      id,
		Fields:  raw,
		Replace: !isJSONBody(r),
	})
	if err != nil {
		h.renderFormError(w, r, h.formData(tag, raw, true, id), err)
		return
	}

	detail := fmt.Sprintf("/%s/%d", tag.Route(), id)
	switch {
	case wantsJSON(r):
		renderJSON(w, http.StatusOK, out)
	case isHTMX(r):
		w.Header().Set("HX-Redirect", detail)
		w.WriteHeader(http.StatusOK)
	default:
		http.Redirect(w, r, detail, http.StatusSeeOther)
	}
}

// HandleDelete handles DELETE /{domain}/{id} and its POST form fallback.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	tag, id, err := h.domainAndID(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	result, err := ops.Delete(r.Context(), h.eng, ops.DeleteInput{Domain: string(tag), ID: id})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	list := "/" + tag.Route()
	switch {
	case isHTMX(r):
		w.Header().Set("HX-Redirect", list)
		w.WriteHeader(http.StatusOK)
	case wantsJSON(r):
		renderJSON(w, http.StatusOK, result)
	default:
		http.Redirect(w, r, list, http.StatusSeeOther)
	}
}

// HandleMaintenance handles POST /vehicles/{id}/maintenance: one service log entry.
func (h *Handlers) HandleMaintenance(w http.ResponseWriter, r *http.Request) {
	tag, id, err := h.domainAndID(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if tag != household.TagVehicle {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("maintenance entries belong to vehicles"))
		return
	}
	raw, err := rawFromRequest(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	out, err := ops.AppendMaintenance(r.Context(), h.eng, ops.AppendMaintenanceInput{VehicleID: id, Fields: raw})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	detail := fmt.Sprintf("/%s/%d", tag.Route(), id)
	switch {
	case wantsJSON(r):
		renderJSON(w, http.StatusCreated, out)
	case isHTMX(r):
		w.Header().Set("HX-Redirect", detail)
		w.WriteHeader(http.StatusOK)
	default:
		http.Redirect(w, r, detail, http.StatusSeeOther)
	}
}

// HandleSearch handles GET /search across every enabled domain.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	data := SearchPageData{
		PageData: h.page("Search", "search"),
		Query:    query,
		HasQuery: query != "",
	}

	if query != "" {
		result, err := ops.Search(r.Context(), h.eng.Store(), ops.SearchInput{
			Query:  query,
			Tags:   h.enabledTags(),
			Limit:  parseIntParam(r, "limit", ops.DefaultSearchLimit),
			Offset: parseIntParam(r, "offset", 0),
		})
		if err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
		if wantsJSON(r) {
			renderJSON(w, http.StatusOK, result)
			return
		}
		data.Items = result.Items
		data.Pagination = result.Pagination
	}

	// htmx live search targets #results only.
	if r.Header.Get("HX-Target") == "results" {
		h.renderer.renderBlock(w, http.StatusOK, "search", "search-results", data)
		return
	}
	h.renderer.renderPage(w, r, "search", data)
}

// renderFormError shows validation failures inline on the form and reports
// any other failure with the save-failed message.
func (h *Handlers) renderFormError(w http.ResponseWriter, r *http.Request, data FormPageData, err error) {
	if wantsJSON(r) {
		h.renderer.renderError(w, r, err)
		return
	}

	status := http.StatusInternalServerError
	if fields := errors.Fields(err); fields != nil {
		status = http.StatusUnprocessableEntity
		data.Message = errors.MessageOf(err)
		for _, f := range fields {
			data.Errors[f.Field] = f.Message
		}
	} else if errors.Is(err, errors.ErrNotFound) || errors.Is(err, errors.ErrInvalidRequest) {
		h.renderer.renderError(w, r, err)
		return
	} else {
		if errors.Is(err, errors.ErrStorageWriteFailed) {
			status = http.StatusInsufficientStorage
		}
		h.logger.Error("form submission failed", "route", data.Route, "error", err)
		data.Message = form.SaveFailedMessage
	}
	h.renderer.renderPageStatus(w, r, status, "form", data)
}

func (h *Handlers) formData(tag household.Tag, values household.RawInput, editing bool, id int64) FormPageData {
	schema := household.SchemaFor(tag)
	title := "Add " + schema.Title
	action := "/" + tag.Route()
	if editing {
		title = "Edit " + schema.Title
		action = fmt.Sprintf("/%s/%d", tag.Route(), id)
	}
	return FormPageData{
		PageData: h.page(title, tag.Route()),
		Route:    tag.Route(),
		Action:   action,
		Schema:   schema,
		Values:   values,
		Errors:   map[string]string{},
		Editing:  editing,
	}
}

func (h *Handlers) page(title, nav string) PageData {
	return h.renderer.page(title, nav, h.tagDisabled)
}

func (h *Handlers) tagDisabled(t household.Tag) bool {
	return h.cfg != nil && h.cfg.TagDisabled(string(t))
}

func (h *Handlers) enabledTags() []household.Tag {
	tags := make([]household.Tag, 0, len(household.Tags))
	for _, t := range household.Tags {
		if !h.tagDisabled(t) {
			tags = append(tags, t)
		}
	}
	return tags
}

func (h *Handlers) disabledTags() []household.Tag {
	var tags []household.Tag
	for _, t := range household.Tags {
		if h.tagDisabled(t) {
			tags = append(tags, t)
		}
	}
	return tags
}

// domain resolves the {domain} path segment. Unknown and disabled domains are 404s.
func (h *Handlers) domain(r *http.Request) (household.Tag, error) {
	name := r.PathValue("domain")
	tag, ok := household.ParseTag(name)
	if !ok || h.tagDisabled(tag) {
		return "", &errors.GharError{
			Code:    errors.ErrNotFound,
			Status:  http.StatusNotFound,
			Message: fmt.Sprintf("no such page: /%s", name),
		}
	}
	return tag, nil
}

func (h *Handlers) domainAndID(r *http.Request) (household.Tag, int64, error) {
	tag, err := h.domain(r)
	if err != nil {
		return "", 0, err
	}
	id, err := ops.ParseID(r.PathValue("id"))
	if err != nil {
		return "", 0, err
	}
	return tag, id, nil
}

// rawFromRequest reads submitted fields from a JSON object body or a
// url-encoded form. Only the first value of a repeated form key is kept.
func rawFromRequest(r *http.Request) (household.RawInput, error) {
	raw := household.RawInput{}
	if isJSONBody(r) {
		dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
		dec.UseNumber()
		var body map[string]any
		if err := dec.Decode(&body); err != nil {
			return nil, errors.NewInvalidRequest("request body must be a JSON object")
		}
		for k, v := range body {
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

	if err := r.ParseForm(); err != nil {
		return nil, errors.NewInvalidRequest("invalid form data")
	}
	for k, vs := range r.PostForm {
		if len(vs) > 0 {
			raw[k] = vs[0]
		}
	}
	return raw, nil
}

func isJSONBody(r *http.Request) bool {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mt == "application/json"
}

// columnFields picks the short fields shown as list columns.
func columnFields(s household.Schema) []household.Field {
	var cols []household.Field
	for i, f := range s.Fields {
		if i == 0 || f.Kind == household.KindTextarea || f.Kind == household.KindPassword {
			continue
		}
		cols = append(cols, f)
		if len(cols) == listColumns {
			break
		}
	}
	return cols
}

// displayValue renders a form value for reading: option labels for selects,
// yes/no for checkboxes.
func displayValue(f household.Field, v string) string {
	switch f.Kind {
	case household.KindCheckbox:
		if on, err := household.ParseFlag(v); err == nil && on {
			return "yes"
		}
		return "no"
	case household.KindSelect:
		for _, o := range f.Options {
			if strings.EqualFold(o.Value, v) {
				return o.Label
			}
		}
	}
	return v
}

var detailLabels = map[string]string{
	"days_until_due":          "Days until due",
	"monthly_cost":            "Monthly cost",
	"yearly_cost":             "Yearly cost",
	"days_until_billing":      "Days until billing",
	"maintenance_total":       "Maintenance total",
	"last_maintenance":        "Last maintenance",
	"insurance_expiring_soon": "Insurance expiring soon",
	"insurance_expired":       "Insurance expired",
	"days_until_renewal":      "Days until renewal",
	"progress":                "Progress (%)",
	"remaining":               "Remaining",
	"days_remaining":          "Days remaining",
	"qr":                      "QR payload",
}

func detailRows(details map[string]any) []DetailRow {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]DetailRow, 0, len(keys))
	for _, k := range keys {
		label, ok := detailLabels[k]
		if !ok {
			label = k
		}
		var value string
		switch v := details[k].(type) {
		case bool:
			value = "no"
			if v {
				value = "yes"
			}
		case float64:
			value = formatMoney(v)
		case int:
			value = strconv.Itoa(v)
		default:
			value = store.AsString(v)
		}
		rows = append(rows, DetailRow{Label: label, Value: value})
	}
	return rows
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}
