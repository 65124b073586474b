package export

import (
	"context"
	"errors"

	errorslib "github.com/goliatone/go-errors"
)

// ErrorKind defines export error kinds.
type ErrorKind string

const (
	// KindConnection: the database is missing, unreadable or not a valid database.
	KindConnection ErrorKind = "connection"
	// KindQuery: table enumeration or a table read failed.
	KindQuery ErrorKind = "query"
	// KindWrite: the export directory or an export file could not be written.
	KindWrite ErrorKind = "write"
	// KindConfig: the run was started with an invalid configuration.
	KindConfig ErrorKind = "config"
)

// ExportError wraps errors with a kind and, when known, the table being exported.
type ExportError struct {
	Kind  ErrorKind
	Table string
	Msg   string
	Err   error
}

func (e *ExportError) Error() string {
	msg := e.Msg
	if e.Table != "" {
		msg = msg + " (table " + e.Table + ")"
	}
	if e.Err == nil {
		return msg
	}
	return msg + ": " + e.Err.Error()
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// NewError creates a new export error.
func NewError(kind ErrorKind, msg string, err error) *ExportError {
	return &ExportError{Kind: kind, Msg: msg, Err: err}
}

func newTableError(kind ErrorKind, table, msg string, err error) *ExportError {
	return &ExportError{Kind: kind, Table: table, Msg: msg, Err: err}
}

// KindFromError maps an error to its export error kind.
func KindFromError(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var exportErr *ExportError
	if errors.As(err, &exportErr) {
		return exportErr.Kind
	}
	return ""
}

// AsGoError maps an error into a go-errors error.
func AsGoError(err error) *errorslib.Error {
	if err == nil {
		return nil
	}

	var ge *errorslib.Error
	if errors.As(err, &ge) {
		return ge
	}

	msg := err.Error()

	if errors.Is(err, context.Canceled) {
		return errorslib.New(msg, errorslib.CategoryOperation).WithTextCode("canceled")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errorslib.New(msg, errorslib.CategoryOperation).WithTextCode("timeout")
	}

	switch KindFromError(err) {
	case KindConnection:
		return errorslib.New(msg, errorslib.CategoryNotFound).WithTextCode("connection")
	case KindQuery:
		return errorslib.New(msg, errorslib.CategoryOperation).WithTextCode("query")
	case KindWrite:
		return errorslib.New(msg, errorslib.CategoryOperation).WithTextCode("write")
	case KindConfig:
		return errorslib.New(msg, errorslib.CategoryValidation).WithTextCode("config")
	default:
		return errorslib.New(msg, errorslib.CategoryInternal).WithTextCode("internal")
	}
}
