package domain

import "github.com/zeebo/errs"

// Error classes shared across the engine. Format errors are always fatal to
// their call and never retried; not-found is surfaced without mutating state;
// network and server errors are surfaced for awaited operations and logged
// for background ones.
var (
	ErrFormat   = errs.Class("coordinate format")
	ErrNotFound = errs.Class("not found")
	ErrNetwork  = errs.Class("network")
	ErrServer   = errs.Class("server")
)
