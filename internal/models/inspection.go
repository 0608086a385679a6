package models

import "time"

// InspectionStatus values persisted in inspections.status.
type InspectionStatus string

const (
	InspectionDraft     InspectionStatus = "draft"
	InspectionSubmitted InspectionStatus = "submitted"
)

// ItemStatus values persisted in inspection_items.status.
type ItemStatus string

const (
	ItemOK        ItemStatus = "ok"
	ItemAttention ItemStatus = "attention"
	ItemNA        ItemStatus = "na"
)

// Inspection is a weekly vehicle check.
type Inspection struct {
	ID             string           `db:"id" json:"id"`
	VehicleID      string           `db:"vehicle_id" json:"vehicle_id"`
	InspectorID    string           `db:"inspector_id" json:"inspector_id"`
	WeekEnding     time.Time        `db:"week_ending" json:"week_ending"`
	CurrentMileage *int             `db:"current_mileage" json:"current_mileage"`
	Status         InspectionStatus `db:"status" json:"status"`
	SubmittedAt    *time.Time       `db:"submitted_at" json:"submitted_at,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
	Items          []InspectionItem `db:"-" json:"items,omitempty"`
}

// InspectionItem is one checklist line for one day. Its id survives re-saves.
type InspectionItem struct {
	ID              string     `db:"id" json:"id"`
	InspectionID    string     `db:"inspection_id" json:"inspection_id"`
	ItemNumber      int        `db:"item_number" json:"item_number"`
	ItemDescription string     `db:"item_description" json:"item_description"`
	DayOfWeek       int        `db:"day_of_week" json:"day_of_week"`
	Status          ItemStatus `db:"status" json:"status"`
	Comments        *string    `db:"comments" json:"comments"`
}

// InspectionFilter constrains inspection listing.
type InspectionFilter struct {
	VehicleID   string
	InspectorID string
	Status      InspectionStatus
	Page        int
	PageSize    int
}
