package lifecycle

import (
	"strings"

	"github.com/fleetline/fleet-api/internal/models"
	appErrors "github.com/fleetline/fleet-api/pkg/errors"
)

var timesheetMachine = machine[models.TimesheetStatus]{
	name: "timesheet",
	edges: map[models.TimesheetStatus][]models.TimesheetStatus{
		models.TimesheetDraft:     {models.TimesheetSubmitted},
		models.TimesheetSubmitted: {models.TimesheetApproved, models.TimesheetRejected},
		models.TimesheetApproved:  {models.TimesheetProcessed},
		models.TimesheetRejected:  {models.TimesheetSubmitted},
	},
}

// TimesheetTransition validates a status change. Review transitions need a reviewer.
func TimesheetTransition(from, to models.TimesheetStatus, reviewerID string) error {
	if err := timesheetMachine.check(from, to); err != nil {
		return err
	}
	if to != models.TimesheetSubmitted && strings.TrimSpace(reviewerID) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "reviewer is required")
	}
	return nil
}

// TimesheetEditable reports whether fields and entries may be changed.
func TimesheetEditable(status models.TimesheetStatus) bool {
	return status == models.TimesheetDraft || status == models.TimesheetRejected
}
