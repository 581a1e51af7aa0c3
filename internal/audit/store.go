package audit

import "context"

// Store is the append-only audit sink. Records are never updated or deleted;
// correlation back to a tag is by TagID value only.
type Store interface {
	Append(ctx context.Context, record Record) error
	ListByTag(ctx context.Context, tagID string) ([]Record, error)
	ListRecent(ctx context.Context, limit int) ([]Record, error)
}
