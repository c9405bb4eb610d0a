// Package diagnostics implements the error-kind taxonomy of spec §7.
//
// Precondition and Cancelled are fatal to the calling operation and are
// returned directly as Go errors. Every other kind is non-fatal and is
// aggregated into a Diagnostics record returned alongside the successful
// result, per the propagation rule.
package diagnostics

import (
	"fmt"

	"github.com/pkg/errors"
)

// PreconditionError means the library root is missing, not a directory, or
// unreadable. Fatal.
type PreconditionError struct {
	Path   string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition: %s: %s", e.Path, e.Reason)
}

// CancelledError means the caller requested a stop; the result is partial
// and no cache write happens.
type CancelledError struct{}

func (e *CancelledError) Error() string {
	return "cancelled"
}

// Kind identifies a non-fatal diagnostic's variant.
type Kind string

const (
	KindPerItem        Kind = "per_item"
	KindParseWarning   Kind = "parse_warning"
	KindCacheRead      Kind = "cache_read"
	KindCacheWrite     Kind = "cache_write"
	KindIndexCollision Kind = "index_collision"
)

// Diagnostic is a single non-fatal recovered condition.
type Diagnostic struct {
	Kind    Kind
	Subject string // path, series name, or ID involved
	Err     error
}

func (d Diagnostic) String() string {
	if d.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", d.Kind, d.Subject, d.Err)
	}
	return fmt.Sprintf("[%s] %s", d.Kind, d.Subject)
}

// New wraps err (if non-nil) with errors.Wrap so the original cause is
// preserved, and records it under kind/subject.
func New(kind Kind, subject string, err error) Diagnostic {
	if err != nil {
		err = errors.Wrap(err, string(kind))
	}
	return Diagnostic{Kind: kind, Subject: subject, Err: err}
}

// Diagnostics aggregates non-fatal Diagnostic records produced during a
// single operation (scan, index build, dedupe run).
type Diagnostics struct {
	Items []Diagnostic
}

func (d *Diagnostics) Add(kind Kind, subject string, err error) {
	d.Items = append(d.Items, New(kind, subject, err))
}

func (d *Diagnostics) IsEmpty() bool {
	return len(d.Items) == 0
}

func (d *Diagnostics) Strings() []string {
	out := make([]string, len(d.Items))
	for i, item := range d.Items {
		out[i] = item.String()
	}
	return out
}

// ParseWarning logs at debug only and is never surfaced per spec §7; this
// constructor exists so parser code has a typed value to discard or hand
// to a debug-level logger, rather than inventing an ad hoc string.
func ParseWarning(subject string, reason string) Diagnostic {
	return Diagnostic{Kind: KindParseWarning, Subject: subject, Err: errors.New(reason)}
}
