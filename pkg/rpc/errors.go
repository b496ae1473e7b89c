package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	tourhub "github.com/perpetuallyhorni/tourhub/internal"
)

// Code is a symbolic error code carried in error envelopes.
type Code string

const (
	CodeParseError         Code = "PARSE_ERROR"
	CodeBadRequest         Code = "BAD_REQUEST"
	CodeNotFound           Code = "NOT_FOUND"
	CodeMethodNotSupported Code = "METHOD_NOT_SUPPORTED"
	CodeTimeout            Code = "TIMEOUT"
	CodeClientClosed       Code = "CLIENT_CLOSED_REQUEST"
	CodeInternal           Code = "INTERNAL_SERVER_ERROR"
)

// codeInfo holds the JSON-RPC code and HTTP status of a Code.
type codeInfo struct {
	rpc    int
	status int
}

var codeTable = map[Code]codeInfo{
	CodeParseError:         {-32700, http.StatusBadRequest},
	CodeBadRequest:         {-32600, http.StatusBadRequest},
	CodeInternal:           {-32603, http.StatusInternalServerError},
	CodeNotFound:           {-32004, http.StatusNotFound},
	CodeMethodNotSupported: {-32005, http.StatusMethodNotAllowed},
	CodeTimeout:            {-32008, http.StatusRequestTimeout},
	CodeClientClosed:       {-32099, 499},
}

// Error is a failure returned by a procedure, on either side of the wire.
type Error struct {
	Code        Code
	Message     string
	Path        string            // Procedure name, when known.
	FieldErrors map[string]string // Input field -> problem, for validation failures.
	Err         error
}

// NewError creates an Error with the given code.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError creates an Error with the given code around an existing error.
func WrapError(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is maps codes onto the domain sentinels so callers can test for them directly.
func (e *Error) Is(target error) bool {
	switch target {
	case tourhub.ErrValidation:
		return e.Code == CodeBadRequest || e.Code == CodeParseError
	case tourhub.ErrNotFound:
		return e.Code == CodeNotFound
	}
	return false
}

// HTTPStatus returns the HTTP status for the error's code.
func (e *Error) HTTPStatus() int {
	if info, ok := codeTable[e.Code]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// RPCCode returns the JSON-RPC code for the error's code.
func (e *Error) RPCCode() int {
	if info, ok := codeTable[e.Code]; ok {
		return info.rpc
	}
	return codeTable[CodeInternal].rpc
}

// codeForStatus picks a code for a bare HTTP status received by a client.
func codeForStatus(status int) Code {
	for code, info := range codeTable {
		if info.status == status && code != CodeParseError {
			return code
		}
	}
	return CodeInternal
}

// FromError converts any error returned by a procedure into an *Error.
// Errors without a recognised cause become internal errors with a generic message.
func FromError(err error) *Error {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	switch {
	case errors.Is(err, tourhub.ErrNotFound):
		return WrapError(CodeNotFound, err.Error(), err)
	case errors.Is(err, tourhub.ErrValidation):
		return WrapError(CodeBadRequest, err.Error(), err)
	case errors.Is(err, context.DeadlineExceeded):
		return WrapError(CodeTimeout, "request timed out", err)
	case errors.Is(err, context.Canceled):
		return WrapError(CodeClientClosed, "request cancelled", err)
	}
	return WrapError(CodeInternal, "internal server error", err)
}

// validationError builds a BAD_REQUEST error from field problems.
func validationError(fields map[string]string) *Error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s %s", name, fields[name]))
	}
	return &Error{
		Code:        CodeBadRequest,
		Message:     "invalid input: " + strings.Join(parts, "; "),
		FieldErrors: fields,
		Err:         tourhub.ErrValidation,
	}
}
