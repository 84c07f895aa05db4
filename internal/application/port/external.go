package port

import (
	"context"

	"github.com/garyjia/purchase-approval/internal/domain/entity"
)

// DocumentExtractor turns an uploaded bill into structured fields with a
// confidence score. Implementations must respect context cancellation;
// callers bound every call with a timeout. Extraction is best-effort and
// never required for workflow correctness.
type DocumentExtractor interface {
	Extract(ctx context.Context, content []byte, filename string) (*entity.ExtractedData, error)
}
