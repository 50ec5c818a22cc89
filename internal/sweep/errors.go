package sweep

import (
	"errors"
	"fmt"

	"github.com/GoSim-25-26J-441/sweep-core/internal/variable"
)

var (
	ErrStepFailed    = errors.New("sweep step failed")
	ErrInvalidPolicy = errors.New("invalid failure policy")
	ErrNoProject     = errors.New("sweep requires a project")
)

// Operations a step can fail in.
const (
	OpSetVariable = "set_variable"
	OpRunAnalysis = "run_analysis"
	OpGetResults  = "get_results"
	OpGetState    = "get_state"
	OpLookup      = "lookup_variation"
)

// StepError wraps an error with the step that produced it.
type StepError struct {
	Index    int
	Snapshot variable.Snapshot
	Op       string
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("sweep step %d %s at %s: %v", e.Index, e.Op, e.Snapshot, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Is makes every StepError match ErrStepFailed.
func (e *StepError) Is(target error) bool {
	return target == ErrStepFailed
}
