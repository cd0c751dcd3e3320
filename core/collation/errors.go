package collation

import "errors"

var (
	// ErrCloseWithNoTransaction is returned by CloseWithGas when the
	// collation was never bound to an unsigned transaction via
	// UpdateUnestimated (e.g. it was empty at the time).
	ErrCloseWithNoTransaction = errors.New("close with no transaction")
	// ErrEmptyCollation is returned by RequestConverter.Convert when asked
	// to pack zero requests (mirrors the source's
	// EmptyTokenTransferRequestTransaction internal error).
	ErrEmptyCollation = errors.New("empty token transfer request transaction")
	// ErrDuplicateRequest is returned by Add when the request hash is
	// already present in the collation.
	ErrDuplicateRequest = errors.New("duplicate request in collation")
)
