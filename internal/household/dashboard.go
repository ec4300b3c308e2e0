package household

import (
	"time"

	"github.com/hpungsan/ghar/internal/store"
)

// Dashboard aggregates every domain's view figures.
type Dashboard struct {
	Counts               map[Tag]int    `json:"counts"`
	MonthlyBills         float64        `json:"monthly_bills"`
	UpcomingBills        []Bill         `json:"upcoming_bills"`
	SubscriptionsMonthly float64        `json:"subscriptions_monthly"`
	Bills                BillStats      `json:"bills"`
	Vehicles             VehicleStats   `json:"vehicles"`
	Insurance            InsuranceStats `json:"insurance"`
	Savings              SavingsStats   `json:"savings"`
	Wifi                 WifiStats      `json:"wifi"`
	Passwords            map[string]int `json:"passwords_by_category"`

	// Skipped counts stored records whose shape could not be read.
	Skipped int `json:"skipped,omitempty"`
}

// BuildDashboard computes the dashboard from loaded collections. Missing tags
// count as empty.
func BuildDashboard(colls map[Tag]store.Collection, now time.Time) Dashboard {
	d := Dashboard{Counts: make(map[Tag]int, len(Tags))}
	for _, t := range Tags {
		d.Counts[t] = len(colls[t])
	}

	bills, n := DecodeAll[Bill](colls[TagBill])
	d.Skipped += n
	d.MonthlyBills = MonthlyBillsAmount(bills)
	d.UpcomingBills = UpcomingBills(bills, now, UpcomingBillWindow, DashboardUpcomingLimit)
	d.Bills = SummarizeBills(bills, now)

	subs, n := DecodeAll[Subscription](colls[TagSubscription])
	d.Skipped += n
	d.SubscriptionsMonthly = SubscriptionsMonthlyTotal(subs)

	vehicles, n := DecodeAll[Vehicle](colls[TagVehicle])
	d.Skipped += n
	d.Vehicles = SummarizeVehicles(vehicles, now)

	policies, n := DecodeAll[InsurancePolicy](colls[TagInsurance])
	d.Skipped += n
	d.Insurance = SummarizeInsurance(policies)

	goals, n := DecodeAll[SavingsGoal](colls[TagSavings])
	d.Skipped += n
	d.Savings = SummarizeSavings(goals)

	networks, n := DecodeAll[WifiNetwork](colls[TagWifi])
	d.Skipped += n
	d.Wifi = SummarizeWifi(networks)

	passwords, n := DecodeAll[Password](colls[TagPassword])
	d.Skipped += n
	d.Passwords = PasswordCounts(passwords)

	return d
}
