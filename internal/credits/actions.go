package credits

// Action identifies a billable operation. The set is closed: every
// action has a fixed integer cost.
type Action string

const (
	ActionGeneration Action = "app_generation"
	ActionPreview    Action = "sandbox_preview"
	ActionExecution  Action = "code_execution"
)

var actionCosts = map[Action]int{
	ActionGeneration: 5,
	ActionPreview:    2,
	ActionExecution:  1,
}

// Cost returns the fixed credit cost of the action.
// The second return value is false for unknown actions.
func (a Action) Cost() (int, bool) {
	cost, ok := actionCosts[a]
	return cost, ok
}
