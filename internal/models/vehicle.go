package models

import (
	"strings"
	"time"
)

// VehicleCategory classifies fleet assets.
type VehicleCategory string

const (
	CategoryVan   VehicleCategory = "van"
	CategoryCar   VehicleCategory = "car"
	CategoryHGV   VehicleCategory = "hgv"
	CategoryPlant VehicleCategory = "plant"
)

// VehicleStatus is the active flag of a vehicle.
type VehicleStatus string

const (
	VehicleActive   VehicleStatus = "active"
	VehicleInactive VehicleStatus = "inactive"
)

// SyncStatus reflects the last DVLA/MOT sync outcome.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSuccess SyncStatus = "success"
	SyncError   SyncStatus = "error"
)

// Vehicle is a registered fleet asset.
type Vehicle struct {
	ID                string          `db:"id" json:"id"`
	RegNumber         string          `db:"reg_number" json:"reg_number"`
	Make              *string         `db:"make" json:"make,omitempty"`
	Model             *string         `db:"model" json:"model,omitempty"`
	Colour            *string         `db:"colour" json:"colour,omitempty"`
	FuelType          *string         `db:"fuel_type" json:"fuel_type,omitempty"`
	YearOfManufacture *int            `db:"year_of_manufacture" json:"year_of_manufacture,omitempty"`
	Category          VehicleCategory `db:"category" json:"category"`
	Status            VehicleStatus   `db:"status" json:"status"`
	DVLASyncStatus    SyncStatus      `db:"dvla_sync_status" json:"dvla_sync_status"`
	DVLASyncError     *string         `db:"dvla_sync_error" json:"dvla_sync_error,omitempty"`
	LastDVLASync      *time.Time      `db:"last_dvla_sync" json:"last_dvla_sync,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// VehicleFilter constrains vehicle listing.
type VehicleFilter struct {
	Status   VehicleStatus
	Category VehicleCategory
	Search   string
	Page     int
	PageSize int
}

// NormalizeReg upper-cases a registration and strips whitespace.
func NormalizeReg(reg string) string {
	return strings.ToUpper(strings.Join(strings.Fields(reg), ""))
}
