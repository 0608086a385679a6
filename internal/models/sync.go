package models

// SyncOutcome is the per-vehicle result of a sync run.
type SyncOutcome string

const (
	SyncOutcomeSuccess SyncOutcome = "success"
	SyncOutcomeFailed  SyncOutcome = "failed"
	SyncOutcomeSkipped SyncOutcome = "skipped"
)

// VehicleSyncResult describes one vehicle processed by the sync job.
type VehicleSyncResult struct {
	VehicleID string      `json:"vehicle_id"`
	RegNumber string      `json:"reg_number"`
	Outcome   SyncOutcome `json:"outcome"`
	Error     string      `json:"error,omitempty"`
	Warnings  []string    `json:"warnings,omitempty"`
}

// SyncReport summarises a sync run.
type SyncReport struct {
	Total      int                 `json:"total"`
	Synced     int                 `json:"synced"`
	Successful int                 `json:"successful"`
	Failed     int                 `json:"failed"`
	Skipped    int                 `json:"skipped"`
	Truncated  bool                `json:"truncated"`
	Results    []VehicleSyncResult `json:"results"`
}
