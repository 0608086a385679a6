// Package audit computes field-level diffs of mutable records and appends them to the
// record history.
package audit

import "github.com/fleetline/fleet-api/internal/models"

// Field is one audited column. Required columns are NOT NULL in storage and reject a
// null or blank patch value.
type Field struct {
	Name     string
	Type     models.ValueType
	Required bool
}

// FieldSpec lists the audited fields of a record type in their fixed output order.
type FieldSpec struct {
	RecordType models.RecordType
	Fields     []Field
}

// Values maps field names to stringified values. A nil value is SQL NULL.
type Values map[string]*string

// Change is a single field transition.
type Change struct {
	Field    string           `json:"field"`
	Type     models.ValueType `json:"value_type"`
	OldValue *string          `json:"old_value"`
	NewValue *string          `json:"new_value"`
}

// Lookup returns the field definition by name.
func (s FieldSpec) Lookup(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Diff compares the patch against current and returns one change per field whose value
// differs. Fields absent from the patch are ignored. Output follows FieldSpec order.
func Diff(spec FieldSpec, current, patch Values) []Change {
	changes := make([]Change, 0, len(patch))
	for _, f := range spec.Fields {
		next, ok := patch[f.Name]
		if !ok {
			continue
		}
		prev := current[f.Name]
		if equal(prev, next) {
			continue
		}
		changes = append(changes, Change{Field: f.Name, Type: f.Type, OldValue: prev, NewValue: next})
	}
	return changes
}

// Merge overlays patch on current and returns a new map.
func Merge(current, patch Values) Values {
	merged := make(Values, len(current)+len(patch))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}

func equal(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

var (
	// MaintenanceSpec covers the vehicle maintenance row.
	MaintenanceSpec = FieldSpec{
		RecordType: models.RecordMaintenance,
		Fields: []Field{
			{"tax_due_date", models.ValueDate, false},
			{"mot_due_date", models.ValueDate, false},
			{"first_aid_kit_expiry", models.ValueDate, false},
			{"current_mileage", models.ValueMileage, false},
			{"last_service_mileage", models.ValueMileage, false},
			{"next_service_mileage", models.ValueMileage, false},
			{"cambelt_due_mileage", models.ValueMileage, false},
			{"cambelt_done", models.ValueBoolean, true},
			{"tracker_id", models.ValueText, false},
			{"notes", models.ValueText, false},
		},
	}

	// AbsenceSpec covers absence requests. duration_days is stored as one decimal place.
	AbsenceSpec = FieldSpec{
		RecordType: models.RecordAbsence,
		Fields: []Field{
			{"start_date", models.ValueDate, true},
			{"end_date", models.ValueDate, false},
			{"is_half_day", models.ValueBoolean, true},
			{"half_day_session", models.ValueText, false},
			{"reason", models.ValueText, true},
			{"duration_days", models.ValueText, true},
			{"notes", models.ValueText, false},
		},
	}

	// TimesheetSpec covers timesheet headers. total_hours is derived from the entries.
	TimesheetSpec = FieldSpec{
		RecordType: models.RecordTimesheet,
		Fields: []Field{
			{"week_ending", models.ValueDate, true},
			{"reg_number", models.ValueText, false},
			{"total_hours", models.ValueText, true},
			{"notes", models.ValueText, false},
		},
	}

	// ActionSpec covers workshop actions.
	ActionSpec = FieldSpec{
		RecordType: models.RecordAction,
		Fields: []Field{
			{"title", models.ValueText, true},
			{"description", models.ValueText, false},
			{"priority", models.ValueText, true},
		},
	}
)
