package service

import "fmt"

// ValidationError reports bad or missing client input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NotFoundError reports that no todo has the requested id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string { return "Todo not found" }

// PersistenceError wraps a store failure. Msg is safe to show to clients, Err is not.
type PersistenceError struct {
	Msg string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return fmt.Sprintf("%s: %v", e.Msg, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func validation(msg string) error { return &ValidationError{Msg: msg} }

func persistence(msg string, err error) error { return &PersistenceError{Msg: msg, Err: err} }
