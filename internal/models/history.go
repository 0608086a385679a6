package models

import "time"

// RecordType identifies the kind of audited record.
type RecordType string

const (
	RecordMaintenance RecordType = "maintenance"
	RecordAbsence     RecordType = "absence"
	RecordTimesheet   RecordType = "timesheet"
	RecordAction      RecordType = "action"
)

// ValueType is the declared type of an audited field.
type ValueType string

const (
	ValueDate    ValueType = "date"
	ValueMileage ValueType = "mileage"
	ValueBoolean ValueType = "boolean"
	ValueText    ValueType = "text"
)

// NoChangesField marks a history entry recorded for an update that changed nothing.
const NoChangesField = "no_changes"

// HistoryEntry is one append-only audit row.
type HistoryEntry struct {
	ID            string     `db:"id" json:"id"`
	RecordType    RecordType `db:"record_type" json:"record_type"`
	SubjectID     string     `db:"subject_id" json:"subject_id"`
	FieldName     string     `db:"field_name" json:"field_name"`
	OldValue      *string    `db:"old_value" json:"old_value"`
	NewValue      *string    `db:"new_value" json:"new_value"`
	ValueType     ValueType  `db:"value_type" json:"value_type"`
	Comment       string     `db:"comment" json:"comment"`
	UpdatedBy     *string    `db:"updated_by" json:"updated_by"`
	UpdatedByName string     `db:"updated_by_name" json:"updated_by_name"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// HistoryFilter constrains history listing.
type HistoryFilter struct {
	RecordType RecordType
	SubjectID  string
	Limit      int
	Offset     int
}
