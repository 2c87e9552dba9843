package apierr

import (
  "errors"
  "fmt"
  "net/http"
)

// Codes carried on the wire inside the error envelope. Handlers switch on
// the Status, clients on the Code.
const (
  CodeValidation  = "validation_error"
  CodeNotFound    = "not_found"
  CodePersistence = "persistence_error"
  CodeOracle      = "oracle_error"
)

type Error struct {
  Status int
  Code   string
  Err    error
}

func (e *Error) Error() string {
  if e == nil {
    return ""
  }
  if e.Err != nil {
    return e.Err.Error()
  }
  if e.Code != "" {
    return e.Code
  }
  return fmt.Sprintf("api error (%d)", e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
  return &Error{Status: status, Code: code, Err: err}
}

// Validation marks caller-supplied shape or field violations.
func Validation(err error) *Error {
  return New(http.StatusBadRequest, CodeValidation, err)
}

func Validationf(format string, args ...interface{}) *Error {
  return Validation(fmt.Errorf(format, args...))
}

// NotFound marks operations referencing an absent id.
func NotFound(err error) *Error {
  return New(http.StatusNotFound, CodeNotFound, err)
}

func NotFoundf(format string, args ...interface{}) *Error {
  return NotFound(fmt.Errorf(format, args...))
}

// Persistence marks backing-store failures: connection exhaustion,
// transaction aborts, query errors.
func Persistence(err error) *Error {
  return New(http.StatusInternalServerError, CodePersistence, err)
}

// Oracle marks failures of the external text-generation service, including
// unparseable output.
func Oracle(err error) *Error {
  return New(http.StatusBadGateway, CodeOracle, err)
}

func IsNotFound(err error) bool {
  var apiErr *Error
  return errors.As(err, &apiErr) && apiErr.Code == CodeNotFound
}

func IsValidation(err error) bool {
  var apiErr *Error
  return errors.As(err, &apiErr) && apiErr.Code == CodeValidation
}
