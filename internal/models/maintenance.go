package models

import "time"

// Maintenance holds the per-vehicle compliance and service record.
type Maintenance struct {
	ID                 string     `db:"id" json:"id"`
	VehicleID          string     `db:"vehicle_id" json:"vehicle_id"`
	TaxDueDate         *time.Time `db:"tax_due_date" json:"tax_due_date"`
	MOTDueDate         *time.Time `db:"mot_due_date" json:"mot_due_date"`
	FirstAidKitExpiry  *time.Time `db:"first_aid_kit_expiry" json:"first_aid_kit_expiry"`
	CurrentMileage     *int       `db:"current_mileage" json:"current_mileage"`
	LastServiceMileage *int       `db:"last_service_mileage" json:"last_service_mileage"`
	NextServiceMileage *int       `db:"next_service_mileage" json:"next_service_mileage"`
	CambeltDueMileage  *int       `db:"cambelt_due_mileage" json:"cambelt_due_mileage"`
	CambeltDone        bool       `db:"cambelt_done" json:"cambelt_done"`
	TrackerID          *string    `db:"tracker_id" json:"tracker_id"`
	Notes              *string    `db:"notes" json:"notes"`
	IsActive           bool       `db:"is_active" json:"is_active"`
	LastDVLASync       *time.Time `db:"last_dvla_sync" json:"last_dvla_sync,omitempty"`
	LastMOTSync        *time.Time `db:"last_mot_sync" json:"last_mot_sync,omitempty"`
	LastUpdatedBy      *string    `db:"last_updated_by" json:"last_updated_by,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// AuditValues returns the stringified audited fields.
func (m *Maintenance) AuditValues() map[string]*string {
	return map[string]*string{
		"tax_due_date":         FormatDate(m.TaxDueDate),
		"mot_due_date":         FormatDate(m.MOTDueDate),
		"first_aid_kit_expiry": FormatDate(m.FirstAidKitExpiry),
		"current_mileage":      FormatInt(m.CurrentMileage),
		"last_service_mileage": FormatInt(m.LastServiceMileage),
		"next_service_mileage": FormatInt(m.NextServiceMileage),
		"cambelt_due_mileage":  FormatInt(m.CambeltDueMileage),
		"cambelt_done":         FormatBool(m.CambeltDone),
		"tracker_id":           FormatText(m.TrackerID),
		"notes":                FormatText(m.Notes),
	}
}

// SyncUpdate carries the fields written by the DVLA/MOT sync job.
type SyncUpdate struct {
	TaxDueDate     *time.Time
	MOTDueDate     *time.Time
	CurrentMileage *int
	DVLASynced     bool
	MOTSynced      bool
}

// MaintenanceDueItem is a row of the maintenance-due report.
type MaintenanceDueItem struct {
	VehicleID   string     `db:"vehicle_id" json:"vehicle_id"`
	RegNumber   string     `db:"reg_number" json:"reg_number"`
	Category    string     `db:"category" json:"category"`
	Item        string     `db:"item" json:"item"`
	DueDate     *time.Time `db:"due_date" json:"due_date,omitempty"`
	DueMileage  *int       `db:"due_mileage" json:"due_mileage,omitempty"`
	CurrentMile *int       `db:"current_mileage" json:"current_mileage,omitempty"`
	Overdue     bool       `db:"overdue" json:"overdue"`
}
