package dto

// CreateActionRequest raises a manual workshop task.
type CreateActionRequest struct {
	VehicleID   *string `json:"vehicle_id" validate:"omitempty,uuid"`
	Title       string  `json:"title" validate:"required,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Priority    string  `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
}

// ActionQuery mirrors supported listing filters.
type ActionQuery struct {
	PageQuery
	VehicleID    string `form:"vehicle_id"`
	InspectionID string `form:"inspection_id"`
	Status       string `form:"status" validate:"omitempty,oneof=pending logged completed"`
}
