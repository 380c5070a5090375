package vedic

import "errors"

// ErrMissingParameters is returned when date or time is empty.
var ErrMissingParameters = errors.New("missing required parameters: date, time, lat, lon, timezone")

// MsgCalculationFailed is recorded for a queried body the engine could not compute.
const MsgCalculationFailed = "Calculation failed"

// dependencyFailed is the error recorded for a derived body whose
// dependency could not be computed.
func dependencyFailed(dep string) string {
	return dep + " calculation failed"
}

// CalculationError is a request-level failure. The message carries the
// cause so it can be returned to clients as is.
type CalculationError struct {
	Err error
}

func (e *CalculationError) Error() string {
	return "Calculation error: " + e.Err.Error()
}

func (e *CalculationError) Unwrap() error {
	return e.Err
}
