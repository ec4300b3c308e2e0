package ops

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/ghar/internal/errors"
	"github.com/hpungsan/ghar/internal/form"
	"github.com/hpungsan/ghar/internal/household"
	"github.com/hpungsan/ghar/internal/store"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	eng   *form.Engine
	store *store.RecordStore
	kv    *store.MemoryKV
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	kv := store.NewMemoryKV()
	s := store.New(kv)
	eng := form.New(s, form.WithClock(form.ClockFunc(func() time.Time { return testNow })))
	return &testEnv{eng: eng, store: s, kv: kv}
}

// add stores one record through the add form and returns its id.
func (e *testEnv) add(t *testing.T, domain string, fields household.RawInput) int64 {
	t.Helper()
	out, err := Add(context.Background(), e.eng, AddInput{Domain: domain, Fields: fields})
	require.NoError(t, err)
	id, ok := out.Record.ID()
	require.True(t, ok)
	return id
}

func bill(name, amount, due, status string) household.RawInput {
	return household.RawInput{
		"name":     name,
		"category": "utility",
		"amount":   amount,
		"dueDate":  due,
		"status":   status,
	}
}

func wifi(name, password, location string) household.RawInput {
	return household.RawInput{
		"networkName":  name,
		"password":     password,
		"securityType": "wpa2",
		"location":     location,
	}
}

func vehicle(mk, model, year string) household.RawInput {
	return household.RawInput{
		"make":         mk,
		"model":        model,
		"year":         year,
		"licensePlate": "ABC-1234",
		"provider":     "Acme",
		"expiryDate":   "2024-03-20",
		"premium":      "80",
	}
}

func TestResolveDomain(t *testing.T) {
	tests := map[string]household.Tag{
		"bill":           household.TagBill,
		"Bills":          household.TagBill,
		"wifi":           household.TagWifi,
		"wifiNetworks":   household.TagWifi,
		"wifiPasswords":  household.TagWifi,
		"/dashboard/car": household.TagGeneral,
		"/vehicles":      household.TagVehicle,
		"/unknown-page":  household.TagGeneral,
	}
	for in, want := range tests {
		got, err := ResolveDomain(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "  ", "boats"} {
		_, err := ResolveDomain(in)
		require.True(t, errors.Is(err, errors.ErrInvalidRequest), in)
	}
}

func TestParseID(t *testing.T) {
	id, err := ParseID(" 1709294400000 ")
	require.NoError(t, err)
	require.Equal(t, int64(1709294400000), id)

	for _, in := range []string{"", "abc", "0", "-5", "1.5"} {
		_, err := ParseID(in)
		require.True(t, errors.Is(err, errors.ErrInvalidRequest), in)
	}
}

func TestPaginate(t *testing.T) {
	coll := store.Collection{{"id": 1}, {"id": 2}, {"id": 3}}

	page, p := paginate(coll, 2, 0)
	require.Len(t, page, 2)
	require.Equal(t, Pagination{Limit: 2, Offset: 0, HasMore: true, Total: 3}, p)

	page, p = paginate(coll, 2, 2)
	require.Len(t, page, 1)
	require.False(t, p.HasMore)

	page, p = paginate(coll, 2, 10)
	require.NotNil(t, page)
	require.Empty(t, page)
	require.Equal(t, 3, p.Total)

	_, p = paginate(coll, 2, -4)
	require.Equal(t, 0, p.Offset)
}

func TestClampLimit(t *testing.T) {
	require.Equal(t, 20, clampLimit(0, 20, 100))
	require.Equal(t, 5, clampLimit(5, 20, 100))
	require.Equal(t, 100, clampLimit(500, 20, 100))
}

func TestMaskSecrets(t *testing.T) {
	rec := store.Record{"id": 1, "password": "hunter2"}
	masked := maskSecrets(rec)
	require.Equal(t, MaskedSecret, masked["password"])
	require.Equal(t, "hunter2", rec["password"], "original untouched")

	empty := maskSecrets(store.Record{"password": ""})
	require.Equal(t, "", empty["password"])

	none := store.Record{"id": 1}
	require.Equal(t, none, maskSecrets(none))
}

func TestAdd_ByDomainAndPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	out, err := Add(ctx, env.eng, AddInput{Domain: "bill", Fields: bill("Water", "42", "2024-03-05", "pending")})
	require.NoError(t, err)
	require.Equal(t, household.TagBill, out.Tag)
	require.Equal(t, "bills", out.Key)
	require.Equal(t, 1, out.Count)
	require.Equal(t, int64(1500), out.CloseAfterMS)
	require.Len(t, out.SessionID, 26)

	out, err = Add(ctx, env.eng, AddInput{Path: "/somewhere-else", Fields: household.RawInput{"name": "Ladder"}})
	require.NoError(t, err)
	require.Equal(t, household.TagGeneral, out.Tag)
	require.Equal(t, "generalItems", out.Key)
}

func TestAdd_ValidationFailed(t *testing.T) {
	env := newTestEnv(t)

	_, err := Add(context.Background(), env.eng, AddInput{Domain: "bill", Fields: bill("Water", "NaN", "2024-03-05", "pending")})
	require.True(t, errors.Is(err, errors.ErrValidationFailed))
	require.Equal(t, "amount", errors.Fields(err)[0].Field)

	raw, ok := env.kv.Raw("bills")
	require.True(t, !ok || raw == "[]", "nothing persisted, got %q", raw)
}

func TestAdd_UnknownDomain(t *testing.T) {
	env := newTestEnv(t)
	_, err := Add(context.Background(), env.eng, AddInput{Domain: "boats"})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}
