package port

import (
	"context"
	"errors"

	"github.com/garyjia/purchase-approval/internal/domain/entity"
)

var (
	// ErrNotFound is returned when a purchase id does not exist
	ErrNotFound = errors.New("purchase not found")

	// ErrVersionConflict is returned when a compare-and-swap write loses a
	// race: the stored version no longer matches the version observed at
	// read time.
	ErrVersionConflict = errors.New("version conflict")
)

// PurchaseRepository defines persistence operations for Purchase.
// Writes after creation go through CompareAndSwap so concurrent transitions
// on the same id serialize: at most one conditioned write per observed
// version commits.
type PurchaseRepository interface {
	// Insert stores a new purchase record
	Insert(ctx context.Context, p *entity.Purchase) error

	// GetByID retrieves a purchase, or ErrNotFound
	GetByID(ctx context.Context, id string) (*entity.Purchase, error)

	// CompareAndSwap writes the record conditioned on expectedVersion still
	// being the stored version. Returns ErrVersionConflict when another
	// write committed first, ErrNotFound when the record is gone.
	CompareAndSwap(ctx context.Context, p *entity.Purchase, expectedVersion int64) error

	// ListByRecency retrieves purchases newest first
	ListByRecency(ctx context.Context, limit, offset int) ([]*entity.Purchase, error)

	// Delete removes a purchase, or returns ErrNotFound
	Delete(ctx context.Context, id string) error
}
