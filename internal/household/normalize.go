package household

import (
	"strings"

	"github.com/hpungsan/ghar/internal/errors"
)

// RawInput is the textual form submission, keyed by field key.
type RawInput map[string]string

// Normalize converts raw form input into the typed record for tag.
// Failures are returned as a single VALIDATION_FAILED error listing every bad field.
func Normalize(tag Tag, raw RawInput) (Entity, error) {
	switch tag {
	case TagVehicle:
		return wrap(NormalizeVehicle(raw))
	case TagSubscription:
		return wrap(NormalizeSubscription(raw))
	case TagBill:
		return wrap(NormalizeBill(raw))
	case TagPassword:
		return wrap(NormalizePassword(raw))
	case TagWifi:
		return wrap(NormalizeWifi(raw))
	case TagInsurance:
		return wrap(NormalizeInsurance(raw))
	case TagSavings:
		return wrap(NormalizeSavings(raw))
	default:
		return wrap(NormalizeGeneral(raw))
	}
}

func wrap[T Entity](e T, err error) (Entity, error) {
	if err != nil {
		return nil, err
	}
	return e, nil
}

// NormalizeVehicle nests the insurance fields and starts an empty maintenance log.
func NormalizeVehicle(raw RawInput) (*Vehicle, error) {
	r := newFieldReader(TagVehicle, raw)
	v := &Vehicle{
		Make:         r.text("make"),
		Model:        r.text("model"),
		Year:         r.whole("year"),
		LicensePlate: r.text("licensePlate"),
		Insurance: VehicleInsurance{
			Provider:     r.text("provider"),
			PolicyNumber: r.text("policyNumber"),
			ExpiryDate:   r.date("expiryDate"),
			Premium:      r.number("premium"),
		},
		MaintenanceRecords: []MaintenanceRecord{},
	}
	return v, r.err()
}

func NormalizeSubscription(raw RawInput) (*Subscription, error) {
	r := newFieldReader(TagSubscription, raw)
	s := &Subscription{
		Name:            r.text("name"),
		Description:     r.text("description"),
		Amount:          r.number("amount"),
		BillingCycle:    r.choice("billingCycle"),
		NextBillingDate: r.date("nextBillingDate"),
		Category:        r.text("category"),
		PaymentMethod:   r.text("paymentMethod"),
	}
	return s, r.err()
}

// NormalizeBill keeps frequency only for recurring bills.
func NormalizeBill(raw RawInput) (*Bill, error) {
	r := newFieldReader(TagBill, raw)
	b := &Bill{
		Name:      r.text("name"),
		Category:  r.choice("category"),
		Amount:    r.number("amount"),
		DueDate:   r.date("dueDate"),
		Status:    r.choice("status"),
		Recurring: r.flag("recurring"),
	}
	frequency := r.choice("frequency")
	if b.Recurring {
		b.Frequency = frequency
	}
	return b, r.err()
}

func NormalizePassword(raw RawInput) (*Password, error) {
	r := newFieldReader(TagPassword, raw)
	p := &Password{
		Website:  r.text("website"),
		Username: r.text("username"),
		Password: r.secret("password"),
		Title:    r.text("title"),
		Category: r.choice("category"),
		Notes:    r.text("notes"),
	}
	return p, r.err()
}

func NormalizeWifi(raw RawInput) (*WifiNetwork, error) {
	r := newFieldReader(TagWifi, raw)
	w := &WifiNetwork{
		NetworkName:  r.text("networkName"),
		Password:     r.secret("password"),
		SecurityType: r.choice("securityType"),
		Location:     r.text("location"),
		Notes:        r.text("notes"),
	}
	return w, r.err()
}

// NormalizeInsurance defaults coverage to 0 when it is left blank.
func NormalizeInsurance(raw RawInput) (*InsurancePolicy, error) {
	r := newFieldReader(TagInsurance, raw)
	p := &InsurancePolicy{
		Type:         r.choice("type"),
		Provider:     r.text("provider"),
		PolicyNumber: r.text("policyNumber"),
		Premium:      r.number("premium"),
		Coverage:     r.number("coverage"),
		RenewalDate:  r.date("renewalDate"),
		Notes:        r.text("notes"),
	}
	return p, r.err()
}

func NormalizeSavings(raw RawInput) (*SavingsGoal, error) {
	r := newFieldReader(TagSavings, raw)
	g := &SavingsGoal{
		GoalType:      r.choice("goalType"),
		Name:          r.text("name"),
		TargetAmount:  r.number("targetAmount"),
		CurrentAmount: r.number("currentAmount"),
		Deadline:      r.date("deadline"),
	}
	return g, r.err()
}

func NormalizeGeneral(raw RawInput) (*GeneralItem, error) {
	r := newFieldReader(TagGeneral, raw)
	g := &GeneralItem{
		Name:        r.text("name"),
		Description: r.text("description"),
		Category:    r.text("category"),
	}
	return g, r.err()
}

// NormalizeMaintenance reads one vehicle maintenance entry.
func NormalizeMaintenance(raw RawInput) (*MaintenanceRecord, error) {
	r := &fieldReader{schema: MaintenanceSchema(), raw: raw}
	m := &MaintenanceRecord{
		Date:        r.date("date"),
		Description: r.text("description"),
		Cost:        r.number("cost"),
	}
	return m, r.err()
}

// fieldReader pulls typed values out of RawInput, collecting one error per bad field.
type fieldReader struct {
	schema Schema
	raw    RawInput
	errs   []errors.FieldError
}

func newFieldReader(tag Tag, raw RawInput) *fieldReader {
	return &fieldReader{schema: SchemaFor(tag), raw: raw}
}

func (r *fieldReader) fail(key, msg string) {
	r.errs = append(r.errs, errors.FieldError{Field: key, Message: msg})
}

func (r *fieldReader) err() error {
	if len(r.errs) == 0 {
		return nil
	}
	return errors.NewValidationFailed(r.errs)
}

// lookup returns the trimmed value and whether it is non-blank.
// Blank required fields are recorded as errors here.
func (r *fieldReader) lookup(key string) (Field, string, bool) {
	f, ok := r.schema.Field(key)
	if !ok {
		f = Field{Key: key, Label: key}
	}
	v := strings.TrimSpace(r.raw[key])
	if v == "" {
		if f.Required {
			r.fail(key, f.Label+" is required")
		}
		return f, "", false
	}
	return f, v, true
}

func (r *fieldReader) text(key string) string {
	_, v, _ := r.lookup(key)
	return v
}

// secret is like text but keeps surrounding whitespace.
func (r *fieldReader) secret(key string) string {
	if _, _, ok := r.lookup(key); !ok {
		return ""
	}
	return r.raw[key]
}

func (r *fieldReader) number(key string) float64 {
	f, v, ok := r.lookup(key)
	if !ok {
		return 0
	}
	n, err := ParseNumber(v)
	if err != nil {
		r.fail(key, f.Label+" must be a number")
		return 0
	}
	return n
}

func (r *fieldReader) whole(key string) int {
	f, v, ok := r.lookup(key)
	if !ok {
		return 0
	}
	n, err := ParseWhole(v)
	if err != nil {
		r.fail(key, f.Label+" must be a whole number")
		return 0
	}
	return n
}

func (r *fieldReader) choice(key string) string {
	f, v, ok := r.lookup(key)
	if !ok {
		return ""
	}
	canonical, ok := f.Match(v)
	if !ok {
		values := make([]string, len(f.Options))
		for i, o := range f.Options {
			values[i] = o.Value
		}
		r.fail(key, f.Label+" must be one of: "+strings.Join(values, ", "))
		return ""
	}
	return canonical
}

func (r *fieldReader) flag(key string) bool {
	f, _ := r.schema.Field(key)
	b, err := ParseFlag(r.raw[key])
	if err != nil {
		r.fail(key, f.Label+" must be yes or no")
		return false
	}
	return b
}

func (r *fieldReader) date(key string) string {
	f, v, ok := r.lookup(key)
	if !ok {
		return ""
	}
	if _, ok := ParseDate(v); !ok {
		r.fail(key, f.Label+" must be a date (YYYY-MM-DD)")
		return ""
	}
	return v
}
