package lifecycle

import (
	"time"

	"github.com/fleetline/fleet-api/internal/models"
)

var absenceMachine = machine[models.AbsenceStatus]{
	name: "absence",
	edges: map[models.AbsenceStatus][]models.AbsenceStatus{
		models.AbsencePending:  {models.AbsenceApproved, models.AbsenceRejected, models.AbsenceCancelled},
		models.AbsenceApproved: {models.AbsenceCancelled},
	},
}

// AbsenceTransition validates a status change. Cancellation is only possible until the
// absence starts.
func AbsenceTransition(from, to models.AbsenceStatus, startDate, today time.Time) error {
	if err := absenceMachine.check(from, to); err != nil {
		return err
	}
	if to == models.AbsenceCancelled && dateOnly(startDate).Before(dateOnly(today)) {
		return invalid("absence has already started and cannot be cancelled")
	}
	return nil
}

// AbsenceEditable reports whether the absence fields may still be changed.
func AbsenceEditable(status models.AbsenceStatus) bool {
	return status == models.AbsencePending || status == models.AbsenceApproved
}
