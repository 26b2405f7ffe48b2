package audit

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines audit journal operations. The journal is observability
// state, not ledger truth: appends run after commit and failures must never
// fail the balance operation that produced them.
type Repository interface {
	Append(ctx context.Context, record *Record) error
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Record, error)
}
