package ops

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/ghar/internal/errors"
	"github.com/hpungsan/ghar/internal/household"
)

func TestUpdate_MergesFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.add(t, "bill", bill("Water", "42", "2024-03-05", "pending"))

	out, err := Update(ctx, env.eng, UpdateInput{Domain: "bill", ID: id, Fields: household.RawInput{"status": "paid"}})
	require.NoError(t, err)
	got, _ := out.Record.ID()
	require.Equal(t, id, got)
	require.Equal(t, "paid", out.Record["status"])
	require.Equal(t, "Water", out.Record["name"])
	require.Equal(t, json.Number("42"), out.Record["amount"])

	list, err := List(ctx, env.store, ListInput{Domain: "bill"})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	require.Equal(t, "paid", list.Items[0]["status"])
	require.NotEmpty(t, list.Items[0]["createdAt"])
}

func TestUpdate_VehicleKeepsNestingAndMaintenance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.add(t, "vehicle", vehicle("Toyota", "Camry", "2020"))

	_, err := AppendMaintenance(ctx, env.eng, AppendMaintenanceInput{
		VehicleID: id,
		Fields:    household.RawInput{"date": "2024-02-01", "description": "Oil change", "cost": "49.99"},
	})
	require.NoError(t, err)

	out, err := Update(ctx, env.eng, UpdateInput{Domain: "vehicles", ID: id, Fields: household.RawInput{"premium": "95"}})
	require.NoError(t, err)

	ins, ok := out.Record["insurance"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, json.Number("95"), ins["premium"])
	require.Equal(t, "Acme", ins["provider"])
	require.Len(t, out.Record["maintenanceRecords"], 1)
}

func TestUpdate_ReplaceRevalidates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.add(t, "bill", bill("Water", "42", "2024-03-05", "pending"))

	_, err := Update(ctx, env.eng, UpdateInput{Domain: "bill", ID: id, Replace: true, Fields: household.RawInput{"status": "paid"}})
	require.True(t, errors.Is(err, errors.ErrValidationFailed))

	_, err = Update(ctx, env.eng, UpdateInput{Domain: "bill", ID: id, Fields: household.RawInput{"amount": "Infinity"}})
	require.True(t, errors.Is(err, errors.ErrValidationFailed))

	// Nothing changed.
	raw, _ := env.kv.Raw("bills")
	var stored []map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	require.Equal(t, "pending", stored[0]["status"])
	require.Equal(t, 42.0, stored[0]["amount"])
}

func TestUpdate_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := Update(ctx, env.eng, UpdateInput{Domain: "bill", ID: 7, Fields: household.RawInput{"status": "paid"}})
	require.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = Update(ctx, env.eng, UpdateInput{Domain: "bill", ID: 7})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = Update(ctx, env.eng, UpdateInput{Domain: "bill", Fields: household.RawInput{"status": "paid"}})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestUpdate_LegacyWifiMergesAndMigrates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.kv.Put(household.LegacyWifiKey, `[{"id":5,"ssid":"Old","password":"pw","securityType":"WPA2"}]`)

	out, err := Update(ctx, env.eng, UpdateInput{Domain: "wifi", ID: 5, Fields: household.RawInput{"location": "Garage"}})
	require.NoError(t, err)
	require.Equal(t, "wifiNetworks", out.Key)
	require.Equal(t, "Old", out.Record["networkName"])
	require.Equal(t, "Garage", out.Record["location"])

	fetched, err := Fetch(ctx, env.store, testNow, FetchInput{Domain: "wifi", ID: 5, Reveal: true})
	require.NoError(t, err)
	require.False(t, fetched.Legacy)
	require.Equal(t, "pw", fetched.Record["password"])

	_, err = Delete(ctx, env.eng, DeleteInput{Domain: "wifi", ID: 5})
	require.NoError(t, err)
	_, err = Fetch(ctx, env.store, testNow, FetchInput{Domain: "wifi", ID: 5})
	require.True(t, errors.Is(err, errors.ErrNotFound))
}
