package reconcile

import (
	"testing"

	"github.com/garyjia/purchase-approval/internal/domain/entity"
)

func TestReconcile(t *testing.T) {
	tests := []struct {
		name      string
		declared  Declared
		extracted *entity.ExtractedData
		want      *entity.ReconciliationReport
	}{
		{
			name:      "nil extraction yields nil report",
			declared:  Declared{VendorName: "Acme Supplies", Amount: 100},
			extracted: nil,
			want:      nil,
		},
		{
			name:     "exact match",
			declared: Declared{VendorName: "Acme Supplies", Amount: 100},
			extracted: &entity.ExtractedData{
				VendorName: "Acme Supplies",
				Amount:     100,
				Confidence: 95,
			},
			want: &entity.ReconciliationReport{VendorNameMatch: true, AmountMatch: true, Confidence: 95},
		},
		{
			name:     "vendor match is case-insensitive with collapsed whitespace",
			declared: Declared{VendorName: "ACME   Supplies", Amount: 100},
			extracted: &entity.ExtractedData{
				VendorName: " acme supplies ",
				Amount:     100,
				Confidence: 80,
			},
			want: &entity.ReconciliationReport{VendorNameMatch: true, AmountMatch: true, Confidence: 80},
		},
		{
			name:     "different vendors do not match",
			declared: Declared{VendorName: "Acme Supplies", Amount: 100},
			extracted: &entity.ExtractedData{
				VendorName: "Apex Traders",
				Amount:     100,
				Confidence: 90,
			},
			want: &entity.ReconciliationReport{VendorNameMatch: false, AmountMatch: true, Confidence: 90},
		},
		{
			name:     "amount within one percent matches",
			declared: Declared{VendorName: "Acme Supplies", Amount: 1000},
			extracted: &entity.ExtractedData{
				VendorName: "Acme Supplies",
				Amount:     1009,
				Confidence: 90,
			},
			want: &entity.ReconciliationReport{VendorNameMatch: true, AmountMatch: true, Confidence: 90},
		},
		{
			name:     "amount beyond one percent does not match",
			declared: Declared{VendorName: "Acme Supplies", Amount: 1000},
			extracted: &entity.ExtractedData{
				VendorName: "Acme Supplies",
				Amount:     1011,
				Confidence: 90,
			},
			want: &entity.ReconciliationReport{VendorNameMatch: true, AmountMatch: false, Confidence: 90},
		},
		{
			name:     "missing extracted fields never match",
			declared: Declared{VendorName: "Acme Supplies", Amount: 1000},
			extracted: &entity.ExtractedData{
				Confidence: 10,
			},
			want: &entity.ReconciliationReport{VendorNameMatch: false, AmountMatch: false, Confidence: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reconcile(tt.declared, tt.extracted)

			if tt.want == nil {
				if got != nil {
					t.Fatalf("Reconcile() = %+v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("Reconcile() = nil, want report")
			}
			if *got != *tt.want {
				t.Errorf("Reconcile() = %+v, want %+v", *got, *tt.want)
			}
		})
	}
}

func TestNormalizeVendor(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Acme Supplies", "acme supplies"},
		{"  ACME\t\tSupplies  ", "acme supplies"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := normalizeVendor(tt.in); got != tt.want {
			t.Errorf("normalizeVendor(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
