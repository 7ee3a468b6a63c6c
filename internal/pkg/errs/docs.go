// Package errs holds the typed errors shared by the domain, application and
// adapter layers.
//
// Every error type pairs a sentinel (ErrObjectNotFound, ErrValueIsInvalid,
// ErrValueIsOutOfRange, ErrValueIsRequired, ErrVersionConflict) with a struct
// carrying details and an optional Cause. Unwrap returns the sentinel, so
// callers branch with errors.Is and read details with errors.As.
package errs
