// Package patch applies byte-level edits to a firmware image, keeping a
// ledger of every change with its pre-image so a run can be audited or
// reasoned about after the fact.
package patch

import "errors"

// Patch is one recorded edit: where, what was there, what is there now.
type Patch struct {
	Offset      int
	OldData     []byte
	NewData     []byte
	Description string
	Applied     bool
}

// Resolver maps a setting name to its location inside the Setup
// variable. Offsets are relative to the Setup base.
type Resolver interface {
	Resolve(name string) (offset, size int, desc string, err error)
}

var (
	ErrOutOfBounds     = errors.New("patch beyond image bounds")
	ErrNoSetupBase     = errors.New("setup base not set")
	ErrOffsetNotFound  = errors.New("setting offset not found")
	ErrUnsupportedSize = errors.New("unsupported setting size")
	ErrVerifyMismatch  = errors.New("read-back verification failed")
	ErrBadMicrocode    = errors.New("microcode validation failed")
)
