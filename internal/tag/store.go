package tag

import (
	"context"

	errs "tagproof/pkg/errors"
)

var (
	// ErrNotFound keeps tag-store 404s consistent across backends.
	ErrNotFound = errs.New(errs.CodeNotFound, "tag not found")

	// ErrPINStale reports that the stored PIN no longer matches the value the
	// caller read. Two concurrent PIN changes can both pass the initial check;
	// the conditional write turns the loser into this error instead of a
	// silent overwrite.
	ErrPINStale = errs.New(errs.CodeConflict, "stored pin changed since read")
)

// Store is interface-driven to keep the verification logic testable and to
// allow swapping in-memory, Postgres, or Redis persistence without rewiring
// business code.
type Store interface {
	// FindByID returns the record for tagID or ErrNotFound.
	FindByID(ctx context.Context, tagID string) (Record, error)

	// Save upserts a record. Used by the provisioning endpoint and tests;
	// the verification handlers never create records.
	Save(ctx context.Context, record Record) error

	// UpdatePIN overwrites the PIN and PINUpdatedAt in one conditional write:
	// the update only applies while the stored PIN still equals currentPIN.
	// Returns ErrNotFound if the tag is gone, ErrPINStale if the PIN moved.
	UpdatePIN(ctx context.Context, tagID, currentPIN, newPIN, updatedAt string) error
}
