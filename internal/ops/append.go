package ops

import (
	"context"

	"github.com/hpungsan/ghar/internal/errors"
	"github.com/hpungsan/ghar/internal/form"
	"github.com/hpungsan/ghar/internal/household"
	"github.com/hpungsan/ghar/internal/store"
)

// AppendMaintenanceInput contains parameters for the AppendMaintenance operation.
type AppendMaintenanceInput struct {
	VehicleID int64
	Fields    household.RawInput // date, description, cost
}

// AppendMaintenanceOutput contains the result of the AppendMaintenance operation.
type AppendMaintenanceOutput struct {
	Record  store.Record `json:"record"`
	Entries int          `json:"entries"`
	Total   float64      `json:"total_cost"`
}

// AppendMaintenance adds one entry to a vehicle's maintenance log.
func AppendMaintenance(ctx context.Context, eng *form.Engine, input AppendMaintenanceInput) (*AppendMaintenanceOutput, error) {
	if input.VehicleID <= 0 {
		return nil, errors.NewInvalidRequest("vehicle id is required")
	}

	rec, err := eng.AddMaintenance(ctx, input.VehicleID, input.Fields)
	if err != nil {
		return nil, err
	}

	output := &AppendMaintenanceOutput{Record: rec}
	if v, err := household.FromRecord(household.TagVehicle, rec); err == nil {
		for _, m := range v.(*household.Vehicle).MaintenanceRecords {
			output.Entries++
			output.Total += m.Cost
		}
	}
	return output, nil
}
