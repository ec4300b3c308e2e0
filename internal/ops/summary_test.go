package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/ghar/internal/household"
)

func TestSummary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.add(t, "bill", bill("Water", "42", "2024-03-05", "pending"))
	env.add(t, "bill", bill("Power", "100", "2024-02-20", "pending"))
	env.add(t, "bill", bill("Rent", "1500", "2024-03-03", "paid"))
	quarterly := bill("Trash", "90", "2024-03-07", "pending")
	quarterly["recurring"] = "on"
	quarterly["frequency"] = "quarterly"
	env.add(t, "bill", quarterly)
	env.add(t, "wifi", wifi("Home", "pw", "Home"))
	env.kv.Put(household.LegacyWifiKey, `[{"id":1,"ssid":"Old","password":"","securityType":"none","location":"Cabin"}]`)

	out, err := Summary(ctx, env.store, testNow, SummaryInput{})
	require.NoError(t, err)
	require.Equal(t, "2024-03-01T12:00:00Z", out.GeneratedAt)

	require.Equal(t, 4, out.Counts[household.TagBill])
	require.Equal(t, 42.0+100+30, out.MonthlyBills)
	require.Equal(t, 232.0, out.Bills.TotalDue)
	require.Equal(t, 2, out.Bills.UpcomingCount)
	require.Equal(t, 1, out.Bills.OverdueCount)
	require.Len(t, out.UpcomingBills, 2)
	require.Equal(t, "Water", out.UpcomingBills[0].Name)

	require.Equal(t, 2, out.Wifi.Count)
	require.Equal(t, 1, out.Wifi.Secured)
	require.Equal(t, 2, out.Wifi.Locations)
}

func TestSummary_Exclude(t *testing.T) {
	env := newTestEnv(t)
	env.add(t, "password", household.RawInput{"website": "example.com", "username": "me", "password": "pw"})

	out, err := Summary(context.Background(), env.store, testNow, SummaryInput{Exclude: []household.Tag{household.TagPassword}})
	require.NoError(t, err)
	require.Equal(t, 0, out.Counts[household.TagPassword])
	require.Empty(t, out.Passwords)
}
