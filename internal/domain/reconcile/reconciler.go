// Package reconcile compares user-declared purchase fields against
// machine-extracted bill data. Reports are advisory: they are attached to
// the record for human review and never gate the approval workflow.
package reconcile

import (
	"math"
	"strings"

	"github.com/garyjia/purchase-approval/internal/domain/entity"
)

// amountTolerance is the relative difference under which declared and
// extracted amounts are considered equal.
const amountTolerance = 0.01

// Declared holds the user-submitted fields subject to reconciliation
type Declared struct {
	VendorName string
	Amount     float64
}

// Reconcile produces a discrepancy report for the declared fields against
// the extracted data. A nil extraction yields a nil report: absence of OCR
// data means no discrepancy was computed, not a failure.
func Reconcile(declared Declared, extracted *entity.ExtractedData) *entity.ReconciliationReport {
	if extracted == nil {
		return nil
	}

	return &entity.ReconciliationReport{
		VendorNameMatch: vendorNamesMatch(declared.VendorName, extracted.VendorName),
		AmountMatch:     amountsMatch(declared.Amount, extracted.Amount),
		Confidence:      extracted.Confidence,
	}
}

// vendorNamesMatch compares vendor names case-insensitively with all
// whitespace runs collapsed
func vendorNamesMatch(declared, extracted string) bool {
	if extracted == "" {
		return false
	}
	return normalizeVendor(declared) == normalizeVendor(extracted)
}

func normalizeVendor(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// amountsMatch returns true when the extracted amount is within 1% of the
// declared amount
func amountsMatch(declared, extracted float64) bool {
	if extracted == 0 {
		return false
	}
	if declared == extracted {
		return true
	}
	base := math.Max(math.Abs(declared), math.Abs(extracted))
	return math.Abs(declared-extracted)/base <= amountTolerance
}
