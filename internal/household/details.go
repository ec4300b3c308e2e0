package household

import (
	"time"

	"github.com/hpungsan/ghar/internal/store"
)

// Details computes the per-record figures shown on a detail page.
// It returns nil when the record's shape cannot be read or the domain has none.
func Details(tag Tag, rec store.Record, now time.Time) map[string]any {
	e, err := FromRecord(tag, rec)
	if err != nil {
		return nil
	}

	d := map[string]any{}
	switch v := e.(type) {
	case *Bill:
		if days, ok := DaysUntil(v.DueDate, now); ok {
			d["days_until_due"] = days
		}
		if v.Recurring {
			d["monthly_cost"] = MonthlyCost(v.Amount, v.Frequency)
		}
	case *Subscription:
		monthly := MonthlyCost(v.Amount, v.BillingCycle)
		d["monthly_cost"] = monthly
		d["yearly_cost"] = monthly * 12
		if days, ok := DaysUntil(v.NextBillingDate, now); ok {
			d["days_until_billing"] = days
		}
	case *Vehicle:
		var total float64
		for _, m := range v.MaintenanceRecords {
			total += m.Cost
		}
		d["maintenance_total"] = total
		if last, ok := LastMaintenance(*v); ok {
			d["last_maintenance"] = last.Format(DateLayout)
		}
		d["insurance_expiring_soon"] = InsuranceExpiringSoon(*v, now)
		d["insurance_expired"] = InsuranceExpired(*v, now)
	case *InsurancePolicy:
		if days, ok := DaysUntil(v.RenewalDate, now); ok {
			d["days_until_renewal"] = days
		}
	case *SavingsGoal:
		d["progress"] = Progress(*v)
		d["remaining"] = Remaining(*v)
		if days, ok := DaysRemaining(*v, now); ok {
			d["days_remaining"] = days
		}
	case *WifiNetwork:
		d["qr"] = WifiQR(*v)
	}

	if len(d) == 0 {
		return nil
	}
	return d
}
