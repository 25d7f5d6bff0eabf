package sim

import "fmt"

// InvalidScheduleError is returned when an event is scheduled strictly before
// the current virtual time. It always indicates a programming error.
type InvalidScheduleError struct {
	At  int64 // requested trigger time (ticks)
	Now int64 // clock value at the time of the request (ticks)
}

func (e *InvalidScheduleError) Error() string {
	return fmt.Sprintf("cannot schedule event at tick %d: clock is already at tick %d", e.At, e.Now)
}

// InvalidConfigurationError reports a configuration value that prevents the
// simulation from starting.
type InvalidConfigurationError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

func invalidConfig(field, format string, args ...any) error {
	return &InvalidConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
