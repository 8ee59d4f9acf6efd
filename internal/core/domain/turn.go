package domain

// TurnState is a state of the per-turn orchestration state machine.
type TurnState string

// Turn states in transition order.
const (
	StateStart        TurnState = "start"
	StateClassified   TurnState = "classified"
	StateFetched      TurnState = "fetched"
	StateSkippedFetch TurnState = "skipped_fetch"
	StateAnswered     TurnState = "answered"
	StateDone         TurnState = "done"
	StateFailed       TurnState = "failed"
)

// Route names the component that produced the answer.
type Route string

// Answer routes.
const (
	RouteGrounded       Route = "grounded"
	RouteConversational Route = "conversational"
)

// TurnTrace records how one turn moved through the state machine.
type TurnTrace struct {
	ID       string
	States   []TurnState
	Decision *Decision
	Papers   []string
	Route    Route
}

// Enter appends a state to the trace.
func (t *TurnTrace) Enter(s TurnState) {
	t.States = append(t.States, s)
}

// State returns the current state.
func (t *TurnTrace) State() TurnState {
	if len(t.States) == 0 {
		return StateStart
	}
	return t.States[len(t.States)-1]
}
