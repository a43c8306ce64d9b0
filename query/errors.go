// query/errors.go
package query

import "net/http"

// Kind classifies a query error.
type Kind string

const (
	KindInvalidParameter   Kind = "INVALID_PARAMETER"
	KindNoMatchingLocation Kind = "NO_MATCHING_LOCATION"
	KindNoMatchingUUID     Kind = "NO_MATCHING_UUID"
	KindEmptyResult        Kind = "EMPTY_RESULT"
)

// HTTPStatus maps the kind to the status code it is served with.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNoMatchingUUID, KindEmptyResult:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

// User-facing messages.
const (
	MsgNoRecords    = "No records match your query. Please try again with different settings."
	MsgUUIDNotFound = "UUID not found. Please try again with a valid UUID."
	MsgUUIDRequired = "Please specify one or more values for 'uuid', separated by '|'."
)

// Error is a query failure whose Detail is safe to show to callers verbatim.
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string { return e.Detail }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// InvalidParameter reports a malformed or unknown value for param.
func InvalidParameter(param string) *Error {
	return &Error{Kind: KindInvalidParameter, Detail: "Invalid " + param}
}

var (
	ErrInvalidLocation = &Error{Kind: KindNoMatchingLocation, Detail: "Invalid loc"}
	ErrUUIDNotFound    = &Error{Kind: KindNoMatchingUUID, Detail: MsgUUIDNotFound}
	ErrUUIDRequired    = &Error{Kind: KindInvalidParameter, Detail: MsgUUIDRequired}
	ErrNoRecords       = &Error{Kind: KindEmptyResult, Detail: MsgNoRecords}
)
