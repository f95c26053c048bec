package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. It is set where the failure happens and is the
// only thing callers should branch on.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindValidation
	KindIncompatibleUnit
	KindUnknownUnit
	KindInvalidIngredientConfig
	KindInvalidStockState
	KindCostComputation
	KindRecipeCostUndefined
	KindInsufficientStock
	KindOrderClosed
	KindInvalidStatus
	KindForbidden
	KindConflict
)

var kindNames = map[Kind]string{
	KindInternal:                "internal",
	KindNotFound:                "not_found",
	KindValidation:              "validation",
	KindIncompatibleUnit:        "incompatible_unit",
	KindUnknownUnit:             "unknown_unit",
	KindInvalidIngredientConfig: "invalid_ingredient_config",
	KindInvalidStockState:       "invalid_stock_state",
	KindCostComputation:         "cost_computation",
	KindRecipeCostUndefined:     "recipe_cost_undefined",
	KindInsufficientStock:       "insufficient_stock",
	KindOrderClosed:             "order_closed",
	KindInvalidStatus:           "invalid_status",
	KindForbidden:               "forbidden",
	KindConflict:                "conflict",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the tagged error returned by the domain packages.
// Details carries structured payloads such as a shortfall list.
type Error struct {
	Kind    Kind
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// WithDetails returns a copy of e carrying d.
func (e *Error) WithDetails(d any) *Error {
	cp := *e
	cp.Details = d
	return &cp
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags err with kind. A nil err yields nil.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: msg, Err: err}
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf reports the kind of err, KindInternal for untagged errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func NotFound(what string) *Error {
	return New(KindNotFound, "%s not found", what)
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return New(KindConflict, format, args...)
}
