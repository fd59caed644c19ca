package edl

import "fmt"

// InvalidRangeError rejects a trim or update whose range is inverted, negative
// or shorter than MinClipSeconds. It is raised at the command boundary before
// any mutation is applied.
type InvalidRangeError struct {
	Start float64
	End   float64
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid clip range: start=%.3f end=%.3f (minimum duration %.1fs)", e.Start, e.End, MinClipSeconds)
}

// NotFoundError reports a command that referenced a decision id not present in
// the list.
type NotFoundError struct {
	DecisionID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("decision not found: %s", e.DecisionID)
}
