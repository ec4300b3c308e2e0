package household

// Entity is one normalized record of a single domain.
type Entity interface {
	Tag() Tag
}

// Meta holds the fields the form engine stamps on every record.
type Meta struct {
	ID        int64  `json:"id" csv:"id"`
	CreatedAt string `json:"createdAt,omitempty" csv:"createdAt"`
}

type VehicleInsurance struct {
	Provider     string  `json:"provider" csv:"provider"`
	PolicyNumber string  `json:"policyNumber" csv:"policyNumber"`
	ExpiryDate   string  `json:"expiryDate" csv:"expiryDate"`
	Premium      float64 `json:"premium" csv:"premium"`
}

type MaintenanceRecord struct {
	ID          int64   `json:"id"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Cost        float64 `json:"cost"`
}

type Vehicle struct {
	Meta
	Make               string              `json:"make" csv:"make"`
	Model              string              `json:"model" csv:"model"`
	Year               int                 `json:"year" csv:"year"`
	LicensePlate       string              `json:"licensePlate" csv:"licensePlate"`
	Insurance          VehicleInsurance    `json:"insurance" csv:"insurance_,inline"`
	MaintenanceRecords []MaintenanceRecord `json:"maintenanceRecords" csv:"-"`
}

type Subscription struct {
	Meta
	Name            string  `json:"name" csv:"name"`
	Description     string  `json:"description,omitempty" csv:"description"`
	Amount          float64 `json:"amount" csv:"amount"`
	BillingCycle    string  `json:"billingCycle" csv:"billingCycle"`
	NextBillingDate string  `json:"nextBillingDate" csv:"nextBillingDate"`
	Category        string  `json:"category,omitempty" csv:"category"`
	PaymentMethod   string  `json:"paymentMethod,omitempty" csv:"paymentMethod"`
}

type Bill struct {
	Meta
	Name      string  `json:"name" csv:"name"`
	Category  string  `json:"category" csv:"category"`
	Amount    float64 `json:"amount" csv:"amount"`
	DueDate   string  `json:"dueDate" csv:"dueDate"`
	Status    string  `json:"status" csv:"status"`
	Recurring bool    `json:"recurring" csv:"recurring"`
	Frequency string  `json:"frequency,omitempty" csv:"frequency"`
}

type Password struct {
	Meta
	Website  string `json:"website" csv:"website"`
	Username string `json:"username" csv:"username"`
	Password string `json:"password" csv:"password"`
	Title    string `json:"title,omitempty" csv:"title"`
	Category string `json:"category,omitempty" csv:"category"`
	Notes    string `json:"notes,omitempty" csv:"notes"`
}

// WifiNetwork also accepts the ssid and name keys used by legacy records.
type WifiNetwork struct {
	Meta
	NetworkName  string `json:"networkName" csv:"networkName"`
	SSID         string `json:"ssid,omitempty" csv:"-"`
	Name         string `json:"name,omitempty" csv:"-"`
	Password     string `json:"password" csv:"password"`
	SecurityType string `json:"securityType" csv:"securityType"`
	Location     string `json:"location,omitempty" csv:"location"`
	Notes        string `json:"notes,omitempty" csv:"notes"`
}

// DisplayName returns the first non-empty of networkName, ssid, name.
func (w WifiNetwork) DisplayName() string {
	switch {
	case w.NetworkName != "":
		return w.NetworkName
	case w.SSID != "":
		return w.SSID
	default:
		return w.Name
	}
}

type InsurancePolicy struct {
	Meta
	Type         string  `json:"type" csv:"type"`
	Provider     string  `json:"provider" csv:"provider"`
	PolicyNumber string  `json:"policyNumber" csv:"policyNumber"`
	Premium      float64 `json:"premium" csv:"premium"`
	Coverage     float64 `json:"coverage" csv:"coverage"`
	RenewalDate  string  `json:"renewalDate" csv:"renewalDate"`
	Notes        string  `json:"notes,omitempty" csv:"notes"`
}

type SavingsGoal struct {
	Meta
	GoalType      string  `json:"goalType" csv:"goalType"`
	Name          string  `json:"name" csv:"name"`
	TargetAmount  float64 `json:"targetAmount" csv:"targetAmount"`
	CurrentAmount float64 `json:"currentAmount" csv:"currentAmount"`
	Deadline      string  `json:"deadline,omitempty" csv:"deadline"`
}

type GeneralItem struct {
	Meta
	Name        string `json:"name" csv:"name"`
	Description string `json:"description,omitempty" csv:"description"`
	Category    string `json:"category,omitempty" csv:"category"`
}

func (Vehicle) Tag() Tag         { return TagVehicle }
func (Subscription) Tag() Tag    { return TagSubscription }
func (Bill) Tag() Tag            { return TagBill }
func (Password) Tag() Tag        { return TagPassword }
func (WifiNetwork) Tag() Tag     { return TagWifi }
func (InsurancePolicy) Tag() Tag { return TagInsurance }
func (SavingsGoal) Tag() Tag     { return TagSavings }
func (GeneralItem) Tag() Tag     { return TagGeneral }

// NewEntity returns a zero value of the shape stored for tag.
func NewEntity(tag Tag) Entity {
	switch tag {
	case TagVehicle:
		return &Vehicle{}
	case TagSubscription:
		return &Subscription{}
	case TagBill:
		return &Bill{}
	case TagPassword:
		return &Password{}
	case TagWifi:
		return &WifiNetwork{}
	case TagInsurance:
		return &InsurancePolicy{}
	case TagSavings:
		return &SavingsGoal{}
	default:
		return &GeneralItem{}
	}
}
