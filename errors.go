package candrive

import (
	"errors"
	"fmt"
)

var (
	ErrIllegalArgument = errors.New("error in function arguments")
	ErrNoMessage       = errors.New("no message available")
	ErrSDOTimeout      = errors.New("timed out waiting for SDO response")
	// The drive performs its configured fault reaction and ignores
	// controlword commands until it has settled in the fault state.
	ErrFaultReactionActive = errors.New("drive in fault reaction active state, cannot proceed")
)

// FaultNotClearedError is returned when a fault reset command
// (transition T15) did not move the drive out of the fault state.
type FaultNotClearedError struct {
	Status uint16 // statusword read back after the reset attempt
}

func (e *FaultNotClearedError) Error() string {
	return fmt.Sprintf("pending fault could not be cleared, statusword x%x (%v)",
		e.Status, StateFromStatusword(e.Status))
}

// UnexpectedStatusError is returned when the statusword did not reach
// the pattern expected after a commanded state transition.
type UnexpectedStatusError struct {
	Status uint16 // last statusword read
	Mask   uint16 // bits that were checked
	Want   uint16 // expected masked pattern
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("unexpected statusword x%x (%v), wanted x%x with mask x%x",
		e.Status, StateFromStatusword(e.Status), e.Want, e.Mask)
}
