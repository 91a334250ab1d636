package errors

import "fmt"

const (
	ErrNotFound           = "NOT_FOUND"
	ErrInvalidTransition  = "INVALID_TRANSITION"
	ErrDroneUnavailable   = "DRONE_UNAVAILABLE"
	ErrOrderNotAssignable = "ORDER_NOT_ASSIGNABLE"
	ErrUnauthorized       = "UNAUTHORIZED"
	ErrForbidden          = "FORBIDDEN"
	ErrConflict           = "CONFLICT"
	ErrValidation         = "VALIDATION"
	ErrInternal           = "INTERNAL"
)

type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches on Code so callers can test against a bare kind, e.g.
// errors.Is(err, &DomainError{Code: ErrDroneUnavailable}).
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func Wrap(code, msg string, err error) *DomainError {
	return &DomainError{Code: code, Message: msg, Err: err}
}

// HasCode reports whether err is a DomainError carrying code.
func HasCode(err error, code string) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// As unwraps err to the first DomainError in its chain.
func As(err error) (*DomainError, bool) {
	for err != nil {
		if de, ok := err.(*DomainError); ok {
			return de, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}

// --- Generic ---

func NewNotFound(entity, id string) *DomainError {
	return &DomainError{Code: ErrNotFound, Message: fmt.Sprintf("%s with id %s not found", entity, id)}
}

func NewInvalidTransition(from, to string) *DomainError {
	return &DomainError{Code: ErrInvalidTransition, Message: fmt.Sprintf("cannot transition from %s to %s", from, to)}
}

func NewUnauthorized(msg string) *DomainError {
	return &DomainError{Code: ErrUnauthorized, Message: msg}
}

func NewForbidden(msg string) *DomainError {
	return &DomainError{Code: ErrForbidden, Message: msg}
}

func NewConflict(msg string) *DomainError {
	return &DomainError{Code: ErrConflict, Message: msg}
}

func NewValidation(msg string) *DomainError {
	return &DomainError{Code: ErrValidation, Message: msg}
}

func NewInternal(msg string, err error) *DomainError {
	return &DomainError{Code: ErrInternal, Message: msg, Err: err}
}

// --- Order ---

func OrderNotFound(id string) *DomainError {
	return NewNotFound("order", id)
}

func OrderInvalidTransition(from, to string) *DomainError {
	return NewInvalidTransition(from, to)
}

func OrderNotAssignable(id, status string) *DomainError {
	return &DomainError{
		Code:    ErrOrderNotAssignable,
		Message: fmt.Sprintf("order %s cannot be assigned from status %s", id, status),
	}
}

func OrderNotOwner() *DomainError {
	return NewForbidden("you do not own this order")
}

// --- Drone ---

func DroneNotFound(id string) *DomainError {
	return NewNotFound("drone", id)
}

func DroneUnavailable(id string) *DomainError {
	return &DomainError{Code: ErrDroneUnavailable, Message: fmt.Sprintf("drone %s is not available", id)}
}

func NoDroneAvailable() *DomainError {
	return &DomainError{Code: ErrDroneUnavailable, Message: "no available drone can take this order"}
}

// NoCapableDrone reports that drones are free but none can lift weight kg.
func NoCapableDrone(weight float64) *DomainError {
	return &DomainError{Code: ErrDroneUnavailable, Message: fmt.Sprintf("no available drone can carry %.2f kg", weight)}
}

func DroneInvalidTransition(from, to string) *DomainError {
	return NewInvalidTransition(from, to)
}

func DroneInUse(id string) *DomainError {
	return NewConflict(fmt.Sprintf("drone %s is bound to an active order", id))
}
