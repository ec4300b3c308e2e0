package household

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/ghar/internal/errors"
)

func fieldNames(err error) []string {
	var names []string
	for _, f := range errors.Fields(err) {
		names = append(names, f.Field)
	}
	return names
}

func TestNormalizeBill(t *testing.T) {
	b, err := NormalizeBill(RawInput{
		"name":      "Electricity",
		"category":  "utility",
		"amount":    "120.50",
		"dueDate":   "2024-03-01",
		"status":    "pending",
		"recurring": "on",
		"frequency": "monthly",
	})
	require.NoError(t, err)
	require.Equal(t, 120.5, b.Amount)
	require.True(t, b.Recurring)
	require.Equal(t, "monthly", b.Frequency)

	rec, err := ToRecord(b)
	require.NoError(t, err)
	require.Equal(t, true, rec["recurring"])
	require.Equal(t, json.Number("120.5"), rec["amount"])
}

func TestNormalizeBill_FrequencyDroppedWhenNotRecurring(t *testing.T) {
	b, err := NormalizeBill(RawInput{
		"name":      "Water",
		"category":  "UTILITY",
		"amount":    "30",
		"dueDate":   "2024-03-01",
		"status":    "paid",
		"frequency": "monthly",
	})
	require.NoError(t, err)
	require.False(t, b.Recurring)
	require.Empty(t, b.Frequency)
	require.Equal(t, "utility", b.Category)

	rec, err := ToRecord(b)
	require.NoError(t, err)
	_, has := rec["frequency"]
	require.False(t, has)
}

func TestNormalizeVehicle_NestsInsurance(t *testing.T) {
	v, err := NormalizeVehicle(RawInput{
		"make":         "Toyota",
		"model":        "Camry",
		"year":         "2020",
		"licensePlate": "ABC-1234",
		"provider":     "Geico",
		"policyNumber": "P1",
		"expiryDate":   "2025-01-01",
		"premium":      "800",
	})
	require.NoError(t, err)

	rec, err := ToRecord(v)
	require.NoError(t, err)
	for _, k := range []string{"provider", "policyNumber", "expiryDate", "premium"} {
		_, has := rec[k]
		require.False(t, has, "top-level %s", k)
	}

	ins, ok := rec["insurance"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "Geico", ins["provider"])
	require.Equal(t, "P1", ins["policyNumber"])
	require.Equal(t, "2025-01-01", ins["expiryDate"])
	require.Equal(t, json.Number("800"), ins["premium"])
	require.Equal(t, []any{}, rec["maintenanceRecords"])
	require.Equal(t, 2020, v.Year)
}

func TestNormalizeVehicle_InsuranceDefaults(t *testing.T) {
	v, err := NormalizeVehicle(RawInput{
		"make":         "Honda",
		"model":        "Civic",
		"year":         "2018",
		"licensePlate": "XYZ",
	})
	require.NoError(t, err)
	require.Equal(t, VehicleInsurance{}, v.Insurance)
	require.NotNil(t, v.MaintenanceRecords)
	require.Empty(t, v.MaintenanceRecords)
}

func TestNormalize_RejectsNonFiniteAndGarbageNumbers(t *testing.T) {
	for _, amount := range []string{"NaN", "Inf", "-Infinity", "abc", "12,50", "1e400"} {
		t.Run(amount, func(t *testing.T) {
			_, err := NormalizeSubscription(RawInput{
				"name":            "Netflix",
				"amount":          amount,
				"billingCycle":    "monthly",
				"nextBillingDate": "2024-04-01",
			})
			require.True(t, errors.Is(err, errors.ErrValidationFailed))
			require.Equal(t, []string{"amount"}, fieldNames(err))
		})
	}
}

func TestNormalize_RequiredFields(t *testing.T) {
	_, err := NormalizeVehicle(RawInput{"make": "  ", "year": "2020"})
	require.True(t, errors.Is(err, errors.ErrValidationFailed))
	require.Equal(t, []string{"make", "model", "licensePlate"}, fieldNames(err))
}

func TestNormalize_SelectOutsideOptions(t *testing.T) {
	_, err := NormalizeWifi(RawInput{
		"networkName":  "Home",
		"password":     "secret",
		"securityType": "wpa9",
		"location":     "Home",
	})
	require.Equal(t, []string{"securityType"}, fieldNames(err))
}

func TestNormalize_YearMustBeWhole(t *testing.T) {
	_, err := NormalizeVehicle(RawInput{
		"make": "Ford", "model": "F150", "year": "2020.5", "licensePlate": "F1",
	})
	require.Equal(t, []string{"year"}, fieldNames(err))
}

func TestNormalize_DateFormat(t *testing.T) {
	_, err := NormalizeSavings(RawInput{
		"goalType":      "savings",
		"name":          "Car",
		"targetAmount":  "5000",
		"currentAmount": "1000",
		"deadline":      "next year",
	})
	require.Equal(t, []string{"deadline"}, fieldNames(err))
}

func TestNormalizeInsurance_CoverageDefaultsToZero(t *testing.T) {
	p, err := NormalizeInsurance(RawInput{
		"type":         "Home",
		"provider":     "State Farm",
		"policyNumber": "POL-1",
		"premium":      "150",
		"renewalDate":  "2025-06-01",
	})
	require.NoError(t, err)
	require.Equal(t, "home", p.Type)
	require.Equal(t, 150.0, p.Premium)
	require.Zero(t, p.Coverage)
}

func TestNormalizePassword_KeepsSecretVerbatim(t *testing.T) {
	p, err := NormalizePassword(RawInput{
		"website":  " google.com ",
		"username": "me@example.com",
		"password": "  spaced  ",
	})
	require.NoError(t, err)
	require.Equal(t, "google.com", p.Website)
	require.Equal(t, "  spaced  ", p.Password)
}

func TestNormalize_DispatchesByTag(t *testing.T) {
	e, err := Normalize(TagGeneral, RawInput{"name": "Ladder"})
	require.NoError(t, err)
	require.Equal(t, TagGeneral, e.Tag())

	e, err = Normalize(TagGeneral, RawInput{})
	require.Nil(t, e)
	require.True(t, errors.Is(err, errors.ErrValidationFailed))
}

func TestParseFlag(t *testing.T) {
	for _, s := range []string{"on", "TRUE", "1", "yes"} {
		v, err := ParseFlag(s)
		require.NoError(t, err)
		require.True(t, v, s)
	}
	for _, s := range []string{"", "off", "false", "0", "no"} {
		v, err := ParseFlag(s)
		require.NoError(t, err)
		require.False(t, v, s)
	}
	_, err := ParseFlag("maybe")
	require.Error(t, err)
}

func TestToRawInput_RoundTrip(t *testing.T) {
	v, err := NormalizeVehicle(RawInput{
		"make": "Toyota", "model": "Camry", "year": "2020", "licensePlate": "ABC",
		"provider": "Geico", "premium": "812.5",
	})
	require.NoError(t, err)
	rec, err := ToRecord(v)
	require.NoError(t, err)

	raw := ToRawInput(TagVehicle, rec)
	require.Equal(t, "2020", raw["year"])
	require.Equal(t, "Geico", raw["provider"])
	require.Equal(t, "812.5", raw["premium"])

	again, err := NormalizeVehicle(raw)
	require.NoError(t, err)
	require.Equal(t, v, again)
}

func TestToRawInput_LegacyWifi(t *testing.T) {
	raw := ToRawInput(TagWifi, map[string]any{
		"ssid":         "Cafe",
		"password":     "pw",
		"securityType": "Open",
	})
	require.Equal(t, "Cafe", raw["networkName"])
	require.Equal(t, "none", raw["securityType"])
}
