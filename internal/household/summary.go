package household

import (
	"math"
	"sort"
	"strings"
	"time"
)

const day = 24 * time.Hour

// Windows used by the dashboard views.
const (
	UpcomingBillWindow      = 7 * day
	ExpiringInsuranceWindow = 30 * day
	DashboardUpcomingLimit  = 3
)

// MonthlyCost scales an amount billed every cycle to a per-month figure.
// Unknown cycles are treated as monthly.
func MonthlyCost(amount float64, cycle string) float64 {
	switch cycle {
	case "quarterly":
		return amount / 3
	case "annually":
		return amount / 12
	default:
		return amount
	}
}

// SubscriptionsMonthlyTotal sums the per-month cost of every subscription.
func SubscriptionsMonthlyTotal(subs []Subscription) float64 {
	var total float64
	for _, s := range subs {
		total += MonthlyCost(s.Amount, s.BillingCycle)
	}
	return total
}

type BillStats struct {
	TotalDue      float64 `json:"total_due"`
	UpcomingCount int     `json:"upcoming_count"`
	OverdueCount  int     `json:"overdue_count"`
}

// SummarizeBills computes the unpaid total, the count due within a week, and
// the count already past due.
func SummarizeBills(bills []Bill, now time.Time) BillStats {
	var s BillStats
	for _, b := range bills {
		if b.Status == "paid" {
			continue
		}
		s.TotalDue += b.Amount
		due, ok := ParseDate(b.DueDate)
		if !ok {
			continue
		}
		if due.Before(now) {
			s.OverdueCount++
		} else if !due.After(now.Add(UpcomingBillWindow)) {
			s.UpcomingCount++
		}
	}
	return s
}

// UpcomingBills returns unpaid bills due in [now, now+within], in stored order,
// capped at limit when limit > 0.
func UpcomingBills(bills []Bill, now time.Time, within time.Duration, limit int) []Bill {
	out := []Bill{}
	for _, b := range bills {
		if b.Status == "paid" {
			continue
		}
		due, ok := ParseDate(b.DueDate)
		if !ok || due.Before(now) || due.After(now.Add(within)) {
			continue
		}
		out = append(out, b)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// MonthlyBillsAmount is the dashboard's unpaid monthly figure. Recurring
// bills are scaled by their frequency; one-off bills count in full.
func MonthlyBillsAmount(bills []Bill) float64 {
	var total float64
	for _, b := range bills {
		if b.Status == "paid" {
			continue
		}
		if b.Recurring {
			total += MonthlyCost(b.Amount, b.Frequency)
			continue
		}
		total += b.Amount
	}
	return total
}

type VehicleStats struct {
	Count             int     `json:"count"`
	MaintenanceCost   float64 `json:"maintenance_cost"`
	InsuranceExpiring int     `json:"insurance_expiring"`
	InsuranceExpired  int     `json:"insurance_expired"`
}

func SummarizeVehicles(vehicles []Vehicle, now time.Time) VehicleStats {
	s := VehicleStats{Count: len(vehicles)}
	for _, v := range vehicles {
		for _, m := range v.MaintenanceRecords {
			s.MaintenanceCost += m.Cost
		}
		if InsuranceExpiringSoon(v, now) {
			s.InsuranceExpiring++
		}
		if InsuranceExpired(v, now) {
			s.InsuranceExpired++
		}
	}
	return s
}

// InsuranceExpiringSoon reports whether the vehicle's policy ends within 30 days.
func InsuranceExpiringSoon(v Vehicle, now time.Time) bool {
	exp, ok := ParseDate(v.Insurance.ExpiryDate)
	return ok && !exp.Before(now) && !exp.After(now.Add(ExpiringInsuranceWindow))
}

func InsuranceExpired(v Vehicle, now time.Time) bool {
	exp, ok := ParseDate(v.Insurance.ExpiryDate)
	return ok && exp.Before(now)
}

// LastMaintenance returns the most recent maintenance date.
func LastMaintenance(v Vehicle) (time.Time, bool) {
	var last time.Time
	found := false
	for _, m := range v.MaintenanceRecords {
		if d, ok := ParseDate(m.Date); ok && (!found || d.After(last)) {
			last, found = d, true
		}
	}
	return last, found
}

type InsuranceStats struct {
	Count         int            `json:"count"`
	TotalPremiums float64        `json:"total_premiums"`
	TotalCoverage float64        `json:"total_coverage"`
	ByType        map[string]int `json:"by_type"`
}

func SummarizeInsurance(policies []InsurancePolicy) InsuranceStats {
	s := InsuranceStats{Count: len(policies), ByType: map[string]int{}}
	for _, p := range policies {
		s.TotalPremiums += p.Premium
		s.TotalCoverage += p.Coverage
		s.ByType[strings.ToLower(p.Type)]++
	}
	return s
}

// DaysUntil is the number of days from now to date, rounded up. It is negative
// for past dates.
func DaysUntil(date string, now time.Time) (int, bool) {
	t, ok := ParseDate(date)
	if !ok {
		return 0, false
	}
	return int(math.Ceil(float64(t.Sub(now)) / float64(day))), true
}

type SavingsStats struct {
	Count           int     `json:"count"`
	TotalSaved      float64 `json:"total_saved"`
	TotalTarget     float64 `json:"total_target"`
	OverallProgress int     `json:"overall_progress"`
}

func SummarizeSavings(goals []SavingsGoal) SavingsStats {
	s := SavingsStats{Count: len(goals)}
	for _, g := range goals {
		s.TotalSaved += g.CurrentAmount
		s.TotalTarget += g.TargetAmount
	}
	if s.TotalTarget > 0 {
		s.OverallProgress = int(math.Round(s.TotalSaved / s.TotalTarget * 100))
	}
	return s
}

// Progress is the goal's completion percentage, rounded and capped at 100.
func Progress(g SavingsGoal) int {
	if g.TargetAmount <= 0 {
		return 0
	}
	p := int(math.Round(g.CurrentAmount / g.TargetAmount * 100))
	return min(p, 100)
}

// Remaining is how much is still needed, never negative.
func Remaining(g SavingsGoal) float64 {
	return math.Max(g.TargetAmount-g.CurrentAmount, 0)
}

// DaysRemaining counts days to the deadline, floored at 0. ok is false when
// the goal has no deadline.
func DaysRemaining(g SavingsGoal, now time.Time) (int, bool) {
	d, ok := DaysUntil(g.Deadline, now)
	if !ok {
		return 0, false
	}
	return max(d, 0), true
}

type WifiStats struct {
	Count     int `json:"count"`
	Secured   int `json:"secured"`
	Locations int `json:"locations"`
}

func SummarizeWifi(networks []WifiNetwork) WifiStats {
	s := WifiStats{Count: len(networks)}
	locations := map[string]struct{}{}
	for _, n := range networks {
		if !isOpen(n.SecurityType) {
			s.Secured++
		}
		if n.Location != "" {
			locations[n.Location] = struct{}{}
		}
	}
	s.Locations = len(locations)
	return s
}

func isOpen(security string) bool {
	switch strings.ToLower(strings.TrimSpace(security)) {
	case "", "none", "open", "nopass":
		return true
	}
	return false
}

var qrEscaper = strings.NewReplacer(`\`, `\\`, `;`, `\;`, `,`, `\,`, `:`, `\:`, `"`, `\"`)

// WifiQR builds the text encoded in a Wi-Fi join QR code.
func WifiQR(n WifiNetwork) string {
	security := "nopass"
	if !isOpen(n.SecurityType) {
		security = strings.ToUpper(n.SecurityType)
	}
	return "WIFI:S:" + qrEscaper.Replace(n.DisplayName()) +
		";T:" + security +
		";P:" + qrEscaper.Replace(n.Password) + ";;"
}

// PasswordCounts groups passwords by category. Uncategorized entries count as "other".
func PasswordCounts(passwords []Password) map[string]int {
	counts := map[string]int{}
	for _, p := range passwords {
		c := strings.ToLower(p.Category)
		if c == "" {
			c = "other"
		}
		counts[c]++
	}
	return counts
}

// SortedKeys returns map keys in lexical order, for stable rendering.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
