package dto

// CreateVehicleRequest registers a vehicle. Missing details are looked up from DVLA.
type CreateVehicleRequest struct {
	RegNumber         string  `json:"reg_number" validate:"required,min=2,max=10"`
	Category          string  `json:"category" validate:"required,oneof=van car hgv plant"`
	Make              *string `json:"make" validate:"omitempty,max=100"`
	Model             *string `json:"model" validate:"omitempty,max=100"`
	Colour            *string `json:"colour" validate:"omitempty,max=50"`
	FuelType          *string `json:"fuel_type" validate:"omitempty,max=50"`
	YearOfManufacture *int    `json:"year_of_manufacture" validate:"omitempty,min=1900,max=2100"`
}

// VehicleQuery mirrors supported listing filters.
type VehicleQuery struct {
	PageQuery
	Status   string `form:"status" validate:"omitempty,oneof=active inactive"`
	Category string `form:"category" validate:"omitempty,oneof=van car hgv plant"`
	Search   string `form:"search"`
}

// DeleteVehicleResponse reports whether the vehicle was removed or only deactivated.
type DeleteVehicleResponse struct {
	ID          string `json:"id"`
	Deleted     bool   `json:"deleted"`
	Deactivated bool   `json:"deactivated"`
}
