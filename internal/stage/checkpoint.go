package stage

// Decision is the checkpoint outcome after a stage.
type Decision int

const (
	// Proceed advances to the next stage.
	Proceed Decision = iota
	// Clarify stops the run and asks the user to amend the input.
	Clarify
	// Fail stops the run with the stage errors.
	Fail
)

func (d Decision) String() string {
	switch d {
	case Proceed:
		return "proceed"
	case Clarify:
		return "clarify"
	case Fail:
		return "fail"
	}
	return "unknown"
}

// Decide applies the checkpoint policy to a stage result: failures fail,
// successes below threshold ask for clarification, everything else proceeds.
func Decide[T any](r Result[T], threshold float64) Decision {
	switch {
	case !r.Success():
		return Fail
	case r.Confidence() < threshold:
		return Clarify
	default:
		return Proceed
	}
}
