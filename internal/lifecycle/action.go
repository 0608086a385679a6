package lifecycle

import "github.com/fleetline/fleet-api/internal/models"

// ActionState is the status of a workshop action. Implementations are ActionPending,
// ActionLogged and ActionCompleted.
type ActionState interface {
	Status() models.ActionStatus
	actionState()
}

// ActionPending is a task awaiting the workshop.
type ActionPending struct{}

// ActionLogged is a task acknowledged with a short comment.
type ActionLogged struct{}

// ActionCompleted is a finished task. WasLogged records whether it passed through logged,
// which decides where undo returns it.
type ActionCompleted struct {
	WasLogged bool
}

func (ActionPending) Status() models.ActionStatus   { return models.ActionPending }
func (ActionLogged) Status() models.ActionStatus    { return models.ActionLogged }
func (ActionCompleted) Status() models.ActionStatus { return models.ActionCompleted }

func (ActionPending) actionState()   {}
func (ActionLogged) actionState()    {}
func (ActionCompleted) actionState() {}

// ActionStateOf derives the state of a loaded row.
func ActionStateOf(action *models.Action) ActionState {
	switch action.Status {
	case models.ActionLogged:
		return ActionLogged{}
	case models.ActionCompleted:
		return ActionCompleted{WasLogged: action.LoggedAt != nil}
	default:
		return ActionPending{}
	}
}

// LogAction moves pending to logged.
func LogAction(state ActionState) (ActionState, error) {
	if _, ok := state.(ActionPending); ok {
		return ActionLogged{}, nil
	}
	return nil, invalid("only pending actions can be logged")
}

// CompleteAction finishes a pending or logged task.
func CompleteAction(state ActionState) (ActionState, error) {
	switch state.(type) {
	case ActionPending:
		return ActionCompleted{WasLogged: false}, nil
	case ActionLogged:
		return ActionCompleted{WasLogged: true}, nil
	}
	return nil, invalid("action is already completed")
}

// UndoAction reverses the last step: logged returns to pending, completed returns to
// logged or pending depending on its history.
func UndoAction(state ActionState) (ActionState, error) {
	switch s := state.(type) {
	case ActionLogged:
		return ActionPending{}, nil
	case ActionCompleted:
		if s.WasLogged {
			return ActionLogged{}, nil
		}
		return ActionPending{}, nil
	}
	return nil, invalid("pending actions have nothing to undo")
}
