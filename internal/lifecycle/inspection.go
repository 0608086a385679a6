package lifecycle

import "github.com/fleetline/fleet-api/internal/models"

var inspectionMachine = machine[models.InspectionStatus]{
	name: "inspection",
	edges: map[models.InspectionStatus][]models.InspectionStatus{
		models.InspectionDraft: {models.InspectionSubmitted},
	},
}

// InspectionTransition validates a status change.
func InspectionTransition(from, to models.InspectionStatus) error {
	return inspectionMachine.check(from, to)
}

// InspectionItemsEditable reports whether items may be saved. Submitted inspections only
// accept amendments from holders of the amend capability.
func InspectionItemsEditable(status models.InspectionStatus, canAmend bool) bool {
	if status == models.InspectionDraft {
		return true
	}
	return status == models.InspectionSubmitted && canAmend
}
