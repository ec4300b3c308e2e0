package household

import "strings"

// Kind is the input widget a field is collected with.
type Kind string

const (
	KindText     Kind = "text"
	KindNumber   Kind = "number"
	KindDate     Kind = "date"
	KindSelect   Kind = "select"
	KindTextarea Kind = "textarea"
	KindCheckbox Kind = "checkbox"
	KindPassword Kind = "password"
)

// GroupInsurance marks vehicle fields that are stored under the nested insurance object.
const GroupInsurance = "insurance"

// Option is one choice of a select field.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// Field describes one form input.
type Field struct {
	Key         string   `json:"key" yaml:"key"`
	Label       string   `json:"label" yaml:"label"`
	Kind        Kind     `json:"kind" yaml:"kind"`
	Required    bool     `json:"required" yaml:"required"`
	Options     []Option `json:"options,omitempty" yaml:"options,omitempty"`
	Group       string   `json:"group,omitempty" yaml:"group,omitempty"`
	Placeholder string   `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
}

// Schema is the ordered field list for one domain.
type Schema struct {
	Tag    Tag     `json:"tag" yaml:"tag"`
	Title  string  `json:"title" yaml:"title"`
	Key    string  `json:"storage_key" yaml:"storage_key"`
	Fields []Field `json:"fields" yaml:"fields"`
}

// Field looks up a field by key.
func (s Schema) Field(key string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Match returns the canonical option value for v, ignoring case.
func (f Field) Match(v string) (string, bool) {
	for _, o := range f.Options {
		if strings.EqualFold(o.Value, v) {
			return o.Value, true
		}
	}
	return "", false
}

var (
	cycleOptions = []Option{
		{"monthly", "Monthly"},
		{"quarterly", "Quarterly"},
		{"annually", "Annually"},
	}
	billCategoryOptions = []Option{
		{"utility", "Utility"},
		{"rent", "Rent/Mortgage"},
		{"insurance", "Insurance"},
		{"internet", "Internet/Phone"},
		{"other", "Other"},
	}
	billStatusOptions = []Option{
		{"pending", "Pending"},
		{"paid", "Paid"},
		{"overdue", "Overdue"},
	}
	passwordCategoryOptions = []Option{
		{"personal", "Personal"},
		{"work", "Work"},
		{"financial", "Financial"},
		{"social", "Social"},
		{"other", "Other"},
	}
	securityOptions = []Option{
		{"wpa2", "WPA2"},
		{"wpa3", "WPA3"},
		{"wpa", "WPA"},
		{"wep", "WEP"},
		{"none", "None (Open)"},
	}
	insuranceTypeOptions = []Option{
		{"auto", "Auto"},
		{"home", "Home/Renter's"},
		{"health", "Health"},
		{"life", "Life"},
		{"other", "Other"},
	}
	goalTypeOptions = []Option{
		{"savings", "Savings Goal"},
		{"budget", "Budget Category"},
	}
)

var schemas = map[Tag][]Field{
	TagVehicle: {
		{Key: "make", Label: "Make", Kind: KindText, Required: true, Placeholder: "Toyota, Honda, etc."},
		{Key: "model", Label: "Model", Kind: KindText, Required: true, Placeholder: "Camry, Civic, etc."},
		{Key: "year", Label: "Year", Kind: KindNumber, Required: true, Placeholder: "2023"},
		{Key: "licensePlate", Label: "License Plate", Kind: KindText, Required: true, Placeholder: "ABC-1234"},
		{Key: "provider", Label: "Insurance Provider", Kind: KindText, Group: GroupInsurance, Placeholder: "Insurance company"},
		{Key: "policyNumber", Label: "Policy Number", Kind: KindText, Group: GroupInsurance, Placeholder: "Policy number"},
		{Key: "expiryDate", Label: "Expiry Date", Kind: KindDate, Group: GroupInsurance},
		{Key: "premium", Label: "Premium ($)", Kind: KindNumber, Group: GroupInsurance, Placeholder: "0.00"},
	},
	TagSubscription: {
		{Key: "name", Label: "Service Name", Kind: KindText, Required: true, Placeholder: "Netflix, Spotify, etc."},
		{Key: "description", Label: "Description", Kind: KindText, Placeholder: "Premium streaming plan"},
		{Key: "amount", Label: "Amount ($)", Kind: KindNumber, Required: true, Placeholder: "9.99"},
		{Key: "billingCycle", Label: "Billing Cycle", Kind: KindSelect, Required: true, Options: cycleOptions},
		{Key: "nextBillingDate", Label: "Next Billing Date", Kind: KindDate, Required: true},
		{Key: "category", Label: "Category", Kind: KindText, Placeholder: "Entertainment"},
		{Key: "paymentMethod", Label: "Payment Method", Kind: KindText, Placeholder: "Visa ending 4242"},
	},
	TagBill: {
		{Key: "name", Label: "Bill Name", Kind: KindText, Required: true, Placeholder: "Electricity, Water, etc."},
		{Key: "category", Label: "Category", Kind: KindSelect, Required: true, Options: billCategoryOptions},
		{Key: "amount", Label: "Amount ($)", Kind: KindNumber, Required: true, Placeholder: "120.00"},
		{Key: "dueDate", Label: "Due Date", Kind: KindDate, Required: true},
		{Key: "status", Label: "Status", Kind: KindSelect, Required: true, Options: billStatusOptions},
		{Key: "recurring", Label: "Recurring Bill", Kind: KindCheckbox},
		{Key: "frequency", Label: "Frequency (if recurring)", Kind: KindSelect, Options: cycleOptions},
	},
	TagPassword: {
		{Key: "website", Label: "Website or Service", Kind: KindText, Required: true, Placeholder: "google.com"},
		{Key: "username", Label: "Username/Email", Kind: KindText, Required: true, Placeholder: "your_email@example.com"},
		{Key: "password", Label: "Password", Kind: KindPassword, Required: true},
		{Key: "title", Label: "Title", Kind: KindText, Placeholder: "Google account"},
		{Key: "category", Label: "Category", Kind: KindSelect, Options: passwordCategoryOptions},
		{Key: "notes", Label: "Notes (Optional)", Kind: KindTextarea, Placeholder: "Additional notes or recovery information"},
	},
	TagWifi: {
		{Key: "networkName", Label: "Network Name (SSID)", Kind: KindText, Required: true, Placeholder: "Home WiFi"},
		{Key: "password", Label: "Password", Kind: KindPassword, Required: true},
		{Key: "securityType", Label: "Security Type", Kind: KindSelect, Required: true, Options: securityOptions},
		{Key: "location", Label: "Location", Kind: KindText, Required: true, Placeholder: "Home, Office, etc."},
		{Key: "notes", Label: "Notes", Kind: KindTextarea},
	},
	TagInsurance: {
		{Key: "type", Label: "Insurance Type", Kind: KindSelect, Required: true, Options: insuranceTypeOptions},
		{Key: "provider", Label: "Provider", Kind: KindText, Required: true, Placeholder: "Insurance company name"},
		{Key: "policyNumber", Label: "Policy Number", Kind: KindText, Required: true, Placeholder: "POL-123456789"},
		{Key: "premium", Label: "Premium Amount ($)", Kind: KindNumber, Required: true, Placeholder: "150.00"},
		{Key: "coverage", Label: "Coverage Amount ($)", Kind: KindNumber, Placeholder: "100000.00"},
		{Key: "renewalDate", Label: "Renewal Date", Kind: KindDate, Required: true},
		{Key: "notes", Label: "Notes", Kind: KindTextarea},
	},
	TagSavings: {
		{Key: "goalType", Label: "Goal Type", Kind: KindSelect, Required: true, Options: goalTypeOptions},
		{Key: "name", Label: "Name", Kind: KindText, Required: true, Placeholder: "Emergency Fund, New Car, etc."},
		{Key: "targetAmount", Label: "Target Amount ($)", Kind: KindNumber, Required: true, Placeholder: "5000.00"},
		{Key: "currentAmount", Label: "Current Amount ($)", Kind: KindNumber, Required: true, Placeholder: "1000.00"},
		{Key: "deadline", Label: "Target Date (Optional)", Kind: KindDate},
	},
	TagGeneral: {
		{Key: "name", Label: "Item Name", Kind: KindText, Required: true, Placeholder: "Enter a name"},
		{Key: "description", Label: "Description", Kind: KindTextarea, Placeholder: "Enter a description"},
		{Key: "category", Label: "Category", Kind: KindText, Placeholder: "Enter a category"},
	},
}

// SchemaFor returns the field schema for tag. Unknown tags get the general schema.
func SchemaFor(tag Tag) Schema {
	if !tag.Valid() {
		tag = TagGeneral
	}
	fields := make([]Field, len(schemas[tag]))
	copy(fields, schemas[tag])
	return Schema{
		Tag:    tag,
		Title:  tag.Title(),
		Key:    tag.StorageKey(),
		Fields: fields,
	}
}

var maintenanceFields = []Field{
	{Key: "date", Label: "Date", Kind: KindDate, Required: true},
	{Key: "description", Label: "Description", Kind: KindText, Required: true, Placeholder: "Oil change"},
	{Key: "cost", Label: "Cost", Kind: KindNumber, Required: true, Placeholder: "0.00"},
}

// MaintenanceSchema returns the fields of one vehicle maintenance entry.
func MaintenanceSchema() Schema {
	fields := make([]Field, len(maintenanceFields))
	copy(fields, maintenanceFields)
	return Schema{
		Tag:    TagVehicle,
		Title:  "Maintenance Record",
		Key:    TagVehicle.StorageKey(),
		Fields: fields,
	}
}
