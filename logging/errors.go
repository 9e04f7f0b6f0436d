package logging

// ArgumentError is returned for invalid arguments.
type ArgumentError struct {
	Message string
}

func (e *ArgumentError) Error() string {
	return e.Message
}

// NotImplementedError is returned by code paths that are declared but not built.
type NotImplementedError struct {
	Message string
}

func (e *NotImplementedError) Error() string {
	return e.Message
}

// FailedAssertionError signals a broken internal invariant.
type FailedAssertionError struct {
	Message string
}

func (e *FailedAssertionError) Error() string {
	return e.Message
}

// UnexpectedError signals a state the caller could not have anticipated.
type UnexpectedError struct {
	Message string
}

func (e *UnexpectedError) Error() string {
	return e.Message
}

// InvalidOperationError is returned when an API is used in the wrong state.
type InvalidOperationError struct {
	Message string
}

func (e *InvalidOperationError) Error() string {
	return e.Message
}

// MessageError is the plain error returned by Logger.Fail.
type MessageError struct {
	Message string
}

func (e *MessageError) Error() string {
	return e.Message
}
