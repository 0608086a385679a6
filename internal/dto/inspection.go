package dto

// InspectionItemInput is one checklist line for one day.
type InspectionItemInput struct {
	ItemNumber      int     `json:"item_number" validate:"required,min=1"`
	ItemDescription string  `json:"item_description" validate:"required,max=200"`
	DayOfWeek       int     `json:"day_of_week" validate:"required,min=1,max=7"`
	Status          string  `json:"status" validate:"required,oneof=ok attention na"`
	Comments        *string `json:"comments" validate:"omitempty,max=1000"`
}

// CreateInspectionRequest opens a draft inspection.
type CreateInspectionRequest struct {
	VehicleID      string                `json:"vehicle_id" validate:"required,uuid"`
	WeekEnding     string                `json:"week_ending" validate:"required,datetime=2006-01-02"`
	CurrentMileage *int                  `json:"current_mileage" validate:"omitempty,min=0"`
	Items          []InspectionItemInput `json:"items" validate:"dive"`
}

// SaveInspectionItemsRequest upserts items of an inspection.
type SaveInspectionItemsRequest struct {
	CurrentMileage *int                  `json:"current_mileage" validate:"omitempty,min=0"`
	Items          []InspectionItemInput `json:"items" validate:"required,min=1,dive"`
}

// InspectionQuery mirrors supported listing filters.
type InspectionQuery struct {
	PageQuery
	VehicleID   string `form:"vehicle_id"`
	InspectorID string `form:"inspector_id"`
	Status      string `form:"status" validate:"omitempty,oneof=draft submitted"`
}
