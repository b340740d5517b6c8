package account

import (
	"fmt"

	"github.com/google/uuid"
)

// Phase is the lifecycle state of one operation.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseFetchingState Phase = "fetching_state"
	PhaseBuilding      Phase = "building"
	PhaseSubmitted     Phase = "submitted"
	PhaseSettled       Phase = "settled"
)

var nextPhase = map[Phase]Phase{
	PhaseIdle:          PhaseFetchingState,
	PhaseFetchingState: PhaseBuilding,
	PhaseBuilding:      PhaseSubmitted,
	PhaseSubmitted:     PhaseSettled,
}

// operation is created per call and never reused.
type operation struct {
	id    string
	name  string
	phase Phase
}

func newOperation(name string) *operation {
	return &operation{id: uuid.NewString(), name: name, phase: PhaseIdle}
}

// advance moves to the next phase. Anything else is a bug in the caller.
func (o *operation) advance(to Phase) {
	if nextPhase[o.phase] != to {
		panic(fmt.Sprintf("operation %s: illegal transition %s -> %s", o.id, o.phase, to))
	}
	o.phase = to
}
