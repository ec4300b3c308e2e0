package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/hpungsan/ghar/internal/config"
	"github.com/hpungsan/ghar/internal/db"
	"github.com/hpungsan/ghar/internal/form"
	"github.com/hpungsan/ghar/internal/household"
	"github.com/hpungsan/ghar/internal/logging"
	"github.com/hpungsan/ghar/internal/ops"
	"github.com/hpungsan/ghar/internal/store"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type testServer struct {
	h       *Handlers
	handler http.Handler
}

func setupTest(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	eng := form.New(store.New(db.NewKV(database)),
		form.WithClock(form.ClockFunc(func() time.Time { return testNow })),
		form.WithTimings(form.Timings{Processing: 500 * time.Millisecond, Display: 2 * time.Second}),
	)

	h, err := newHandlers(eng, cfg, logging.Discard(), "test")
	if err != nil {
		t.Fatalf("newHandlers: %v", err)
	}
	return &testServer{h: h, handler: h.routes()}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// seed stores a record through the add form and returns its id.
func (s *testServer) seed(t *testing.T, domain string, fields household.RawInput) int64 {
	t.Helper()
	out, err := ops.Add(context.Background(), s.h.eng, ops.AddInput{Domain: domain, Fields: fields})
	if err != nil {
		t.Fatalf("seed %s: %v", domain, err)
	}
	id, _ := out.Record.ID()
	return id
}

func postForm(target string, values url.Values) *http.Request {
	req := httptest.NewRequest("POST", target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func billValues(name string) url.Values {
	return url.Values{
		"name":      {name},
		"category":  {"utility"},
		"amount":    {"120.50"},
		"dueDate":   {"2024-03-05"},
		"status":    {"pending"},
		"recurring": {"on"},
		"frequency": {"monthly"},
	}
}

func billFields(name string) household.RawInput {
	raw := household.RawInput{}
	for k, v := range billValues(name) {
		raw[k] = v[0]
	}
	return raw
}

// --- Dashboard ---

func TestHandleDashboard(t *testing.T) {
	s := setupTest(t, nil)
	s.seed(t, "bill", billFields("Electricity"))

	rec := s.do(httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Dashboard", "Electricity", "120.50", "Upcoming bills"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in dashboard", want)
		}
	}
}

func TestHandleDashboard_JSON(t *testing.T) {
	s := setupTest(t, nil)
	s.seed(t, "bill", billFields("Electricity"))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Accept", "application/json")
	rec := s.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Summary struct {
			Counts       map[string]int `json:"counts"`
			MonthlyBills float64        `json:"monthly_bills"`
		} `json:"summary"`
		Latest []ops.LatestItem `json:"latest"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Summary.Counts["bill"] != 1 {
		t.Errorf("bill count = %d, want 1", resp.Summary.Counts["bill"])
	}
	if resp.Summary.MonthlyBills != 120.5 {
		t.Errorf("monthly bills = %v, want 120.5", resp.Summary.MonthlyBills)
	}
	if len(resp.Latest) != 1 || resp.Latest[0].Name != "Electricity" {
		t.Errorf("latest = %+v", resp.Latest)
	}
}

// --- Add form ---

func TestHandleNew_RendersSchema(t *testing.T) {
	s := setupTest(t, nil)

	rec := s.do(httptest.NewRequest("GET", "/bills/new", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Add Bill", `name="dueDate"`, `type="checkbox" name="recurring"`, `<option value="monthly"`} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in form", want)
		}
	}
}

func TestHandleSubmit_ThenListShowsRecord(t *testing.T) {
	s := setupTest(t, nil)

	rec := s.do(postForm("/bills", billValues("Electricity")))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Saved.") {
		t.Error("expected success message")
	}
	// Closes after processing + display delay.
	if !strings.Contains(body, `content="3;url=/bills"`) {
		t.Errorf("expected meta refresh back to the list, got: %s", body)
	}

	rec = s.do(httptest.NewRequest("GET", "/bills", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Electricity") {
		t.Error("expected new bill in list")
	}
}

func TestHandleSubmit_JSON(t *testing.T) {
	s := setupTest(t, nil)

	req := httptest.NewRequest("POST", "/bills", strings.NewReader(`{"name":"Water","category":"utility","amount":42,"dueDate":"2024-03-10","status":"pending","recurring":false}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	rec := s.do(req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body: %s", rec.Code, rec.Body.String())
	}

	var out ops.AddOutput
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Key != "bills" || out.Count != 1 || out.CloseAfterMS != 2500 {
		t.Errorf("unexpected output: %+v", out)
	}
	if out.Record["recurring"] != false {
		t.Errorf("recurring = %v, want false", out.Record["recurring"])
	}
}

func TestHandleSubmit_ValidationRerendersForm(t *testing.T) {
	s := setupTest(t, nil)

	values := billValues("Electricity")
	values.Set("amount", "NaN")
	rec := s.do(postForm("/bills", values))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "field-error") {
		t.Error("expected inline field error")
	}
	if !strings.Contains(body, `value="Electricity"`) {
		t.Error("expected submitted values to be kept")
	}

	coll, err := s.h.eng.Store().Load(context.Background(), "bills")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(coll) != 0 {
		t.Errorf("stored %d records, want 0", len(coll))
	}
}

func TestHandleSubmit_ValidationJSON(t *testing.T) {
	s := setupTest(t, nil)

	req := postForm("/bills", url.Values{"name": {"Electricity"}})
	req.Header.Set("Accept", "application/json")
	rec := s.do(req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}

	var resp map[string]map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["error"]["code"] != "VALIDATION_FAILED" {
		t.Errorf("code = %v", resp["error"]["code"])
	}
	if _, ok := resp["error"]["fields"]; !ok {
		t.Error("expected field errors in response")
	}
}

func TestHandleSubmit_UnknownDomain(t *testing.T) {
	s := setupTest(t, nil)

	rec := s.do(postForm("/unknown-page", url.Values{"name": {"x"}}))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

// --- List ---

func TestHandleList_SearchAndSort(t *testing.T) {
	s := setupTest(t, nil)
	s.seed(t, "bill", billFields("Water"))
	s.seed(t, "bill", billFields("Electricity"))

	rec := s.do(httptest.NewRequest("GET", "/bills?sort=name", nil))
	body := rec.Body.String()
	if strings.Index(body, "Electricity") > strings.Index(body, "Water") {
		t.Error("expected name order")
	}

	rec = s.do(httptest.NewRequest("GET", "/bills?q=wat", nil))
	body = rec.Body.String()
	if !strings.Contains(body, "Water") || strings.Contains(body, ">Electricity<") {
		t.Error("expected only Water in filtered list")
	}
}

func TestHandleList_MasksPasswords(t *testing.T) {
	s := setupTest(t, nil)
	s.seed(t, "wifi", household.RawInput{
		"networkName":  "Home",
		"password":     "hunter22",
		"securityType": "wpa2",
		"location":     "Home",
	})

	req := httptest.NewRequest("GET", "/wifi", nil)
	req.Header.Set("Accept", "application/json")
	rec := s.do(req)
	if strings.Contains(rec.Body.String(), "hunter22") {
		t.Error("password leaked in list")
	}
}

func TestHandleList_HTMXFragment(t *testing.T) {
	s := setupTest(t, nil)
	s.seed(t, "bill", billFields("Water"))

	req := httptest.NewRequest("GET", "/bills", nil)
	req.Header.Set("HX-Request", "true")
	req.Header.Set("HX-Target", "rows")
	rec := s.do(req)
	body := rec.Body.String()
	if strings.Contains(body, "<html") {
		t.Error("htmx fragment must not include the layout")
	}
	if !strings.Contains(body, "Water") {
		t.Error("expected rows in fragment")
	}
}

func TestHandleList_DisabledDomain(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DisabledTags = []string{"password"}
	s := setupTest(t, cfg)

	rec := s.do(httptest.NewRequest("GET", "/passwords", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	rec = s.do(httptest.NewRequest("GET", "/", nil))
	if strings.Contains(rec.Body.String(), `href="/passwords"`) {
		t.Error("disabled domain should not be in navigation")
	}
}

// --- Detail ---

func TestHandleDetail(t *testing.T) {
	s := setupTest(t, nil)
	id := s.seed(t, "bill", billFields("Electricity"))

	rec := s.do(httptest.NewRequest("GET", "/bills/"+strconv.FormatInt(id, 10), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Electricity", "Utility", "Days until due", "Monthly cost"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q on detail page", want)
		}
	}
}

func TestHandleDetail_RendersNotesAsMarkdown(t *testing.T) {
	s := setupTest(t, nil)
	id := s.seed(t, "general", household.RawInput{
		"name":        "Boiler",
		"description": "Serviced by **Acme**\n\n<script>alert(1)</script>",
	})

	rec := s.do(httptest.NewRequest("GET", "/general/"+strconv.FormatInt(id, 10), nil))
	body := rec.Body.String()
	if !strings.Contains(body, "<strong>Acme</strong>") {
		t.Error("expected markdown to be rendered")
	}
	if strings.Contains(body, "<script>alert(1)</script>") {
		t.Error("raw HTML must not pass through")
	}
}

func TestHandleDetail_PasswordRevealOnRequest(t *testing.T) {
	s := setupTest(t, nil)
	id := s.seed(t, "password", household.RawInput{
		"website":  "example.com",
		"username": "me",
		"password": "s3cret!",
	})
	path := "/passwords/" + strconv.FormatInt(id, 10)

	rec := s.do(httptest.NewRequest("GET", path, nil))
	if strings.Contains(rec.Body.String(), "s3cret!") {
		t.Error("password shown without reveal")
	}

	rec = s.do(httptest.NewRequest("GET", path+"?reveal=true", nil))
	if !strings.Contains(rec.Body.String(), "s3cret!") {
		t.Error("expected password with reveal=true")
	}
}

func TestHandleDetail_NotFound(t *testing.T) {
	s := setupTest(t, nil)

	rec := s.do(httptest.NewRequest("GET", "/bills/12345", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	rec = s.do(httptest.NewRequest("GET", "/bills/abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

// --- Edit ---

func TestHandleEdit_FormReplacesRecord(t *testing.T) {
	s := setupTest(t, nil)
	id := s.seed(t, "bill", billFields("Electricity"))
	path := "/bills/" + strconv.FormatInt(id, 10)

	rec := s.do(httptest.NewRequest("GET", path+"/edit", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `value="Electricity"`) {
		t.Fatalf("edit form status = %d", rec.Code)
	}

	values := billValues("Electricity")
	values.Set("status", "paid")
	values.Del("recurring")
	rec = s.do(postForm(path, values))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != path {
		t.Errorf("Location = %q, want %q", loc, path)
	}

	coll, _ := s.h.eng.Store().Load(context.Background(), "bills")
	got, ok := coll.Find(id)
	if !ok {
		t.Fatal("record missing after edit")
	}
	if got["status"] != "paid" || got["recurring"] != false {
		t.Errorf("unexpected record after edit: %v", got)
	}
	if _, ok := got["frequency"]; ok {
		t.Error("frequency should be dropped when not recurring")
	}
}

func TestHandleEdit_JSONPatch(t *testing.T) {
	s := setupTest(t, nil)
	id := s.seed(t, "bill", billFields("Electricity"))

	req := httptest.NewRequest("POST", "/bills/"+strconv.FormatInt(id, 10), strings.NewReader(`{"status":"paid"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	rec := s.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var out ops.UpdateOutput
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Record["status"] != "paid" || out.Record["recurring"] != true {
		t.Errorf("patch should keep other fields: %v", out.Record)
	}
}

// --- Delete ---

func TestHandleDelete(t *testing.T) {
	s := setupTest(t, nil)
	first := s.seed(t, "bill", billFields("Water"))
	second := s.seed(t, "bill", billFields("Electricity"))

	req := httptest.NewRequest("DELETE", "/bills/"+strconv.FormatInt(first, 10), nil)
	req.Header.Set("Accept", "application/json")
	rec := s.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out ops.DeleteOutput
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.Deleted || out.ID != first {
		t.Errorf("unexpected output: %+v", out)
	}

	coll, _ := s.h.eng.Store().Load(context.Background(), "bills")
	if len(coll) != 1 {
		t.Fatalf("len = %d, want 1", len(coll))
	}
	if id, _ := coll[0].ID(); id != second {
		t.Errorf("remaining id = %d, want %d", id, second)
	}
}

func TestHandleDelete_HTMXAndFormFallback(t *testing.T) {
	s := setupTest(t, nil)
	a := s.seed(t, "bill", billFields("Water"))
	b := s.seed(t, "bill", billFields("Gas"))

	req := httptest.NewRequest("DELETE", "/bills/"+strconv.FormatInt(a, 10), nil)
	req.Header.Set("HX-Request", "true")
	rec := s.do(req)
	if got := rec.Header().Get("HX-Redirect"); got != "/bills" {
		t.Errorf("HX-Redirect = %q, want /bills", got)
	}

	rec = s.do(postForm("/bills/"+strconv.FormatInt(b, 10)+"/delete", url.Values{}))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}

	req = httptest.NewRequest("DELETE", "/bills/"+strconv.FormatInt(b, 10), nil)
	rec = s.do(req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

// --- Maintenance ---

func TestHandleMaintenance(t *testing.T) {
	s := setupTest(t, nil)
	id := s.seed(t, "vehicle", household.RawInput{
		"make":         "Toyota",
		"model":        "Corolla",
		"year":         "2019",
		"licensePlate": "ABC-1234",
	})
	path := "/vehicles/" + strconv.FormatInt(id, 10)

	rec := s.do(postForm(path+"/maintenance", url.Values{
		"date":        {"2024-02-01"},
		"description": {"Oil change"},
		"cost":        {"49.99"},
	}))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303; body: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(httptest.NewRequest("GET", path, nil))
	body := rec.Body.String()
	if !strings.Contains(body, "Oil change") || !strings.Contains(body, "49.99") {
		t.Error("expected maintenance entry on detail page")
	}

	rec = s.do(postForm("/bills/"+strconv.FormatInt(id, 10)+"/maintenance", url.Values{}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for non-vehicle", rec.Code)
	}
}

// --- Search ---

func TestHandleSearch(t *testing.T) {
	s := setupTest(t, nil)
	s.seed(t, "bill", billFields("Electricity"))
	s.seed(t, "general", household.RawInput{"name": "Electric drill"})

	rec := s.do(httptest.NewRequest("GET", "/search?q=electr", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Electric drill") || !strings.Contains(body, "<b>Electr</b>") {
		t.Errorf("expected highlighted results, got: %s", body)
	}

	req := httptest.NewRequest("GET", "/search?q=drill", nil)
	req.Header.Set("HX-Request", "true")
	req.Header.Set("HX-Target", "results")
	rec = s.do(req)
	if strings.Contains(rec.Body.String(), "<html") {
		t.Error("htmx fragment must not include the layout")
	}
}

// --- Static and headers ---

func TestStaticAndSecurityHeaders(t *testing.T) {
	s := setupTest(t, nil)

	rec := s.do(httptest.NewRequest("GET", "/static/style.css", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("missing X-Frame-Options")
	}
	if !strings.Contains(rec.Header().Get("Content-Security-Policy"), "default-src 'self'") {
		t.Error("missing CSP")
	}
}

func TestFormatMoney(t *testing.T) {
	tests := map[float64]string{
		0:          "0.00",
		9.5:        "9.50",
		1234.5:     "1,234.50",
		1234567.89: "1,234,567.89",
		-42:        "-42.00",
	}
	for in, want := range tests {
		if got := formatMoney(in); got != want {
			t.Errorf("formatMoney(%v) = %q, want %q", in, got, want)
		}
	}
}

// --- Legacy Wi-Fi ---

func TestLegacyWifi_EditAndDelete(t *testing.T) {
	s := setupTest(t, nil)
	ctx := context.Background()
	legacy, err := store.Decode(`[{"id":5,"ssid":"Old","password":"pw","securityType":"WPA2"},{"id":6,"ssid":"Cafe","password":"","securityType":"Open"}]`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := s.h.eng.Store().Save(ctx, household.LegacyWifiKey, legacy); err != nil {
		t.Fatalf("save legacy: %v", err)
	}

	rec := s.do(httptest.NewRequest("GET", "/wifi/5", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("detail status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Saved by an older version", "/wifi/5/edit", "/wifi/5/delete"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in legacy detail", want)
		}
	}

	rec = s.do(httptest.NewRequest("GET", "/wifi/5/edit", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("edit form status = %d, want 200", rec.Code)
	}

	rec = s.do(postForm("/wifi/5", url.Values{
		"networkName":  {"Old"},
		"password":     {"pw2"},
		"securityType": {"wpa2"},
		"location":     {"Home"},
	}))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("edit status = %d, want 303; body: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/wifi/5" {
		t.Errorf("edit redirect = %q, want /wifi/5", loc)
	}
	out, err := ops.Fetch(ctx, s.h.eng.Store(), testNow, ops.FetchInput{Domain: "wifi", ID: 5, Reveal: true})
	if err != nil {
		t.Fatalf("fetch migrated: %v", err)
	}
	if out.Legacy || out.Record["location"] != "Home" {
		t.Errorf("migrated record = %+v (legacy %v), want wifiNetworks copy with location", out.Record, out.Legacy)
	}

	rec = s.do(postForm("/wifi/6/delete", url.Values{}))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("delete status = %d, want 303", rec.Code)
	}
	if rec := s.do(httptest.NewRequest("GET", "/wifi/6", nil)); rec.Code != http.StatusNotFound {
		t.Errorf("deleted legacy record status = %d, want 404", rec.Code)
	}

	rec = s.do(httptest.NewRequest("GET", "/wifi", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "Cafe") {
		t.Error("deleted legacy record still listed")
	}
}
