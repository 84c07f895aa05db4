package entity

import (
	"testing"
	"time"
)

func validPurchase() *Purchase {
	return &Purchase{
		ID:              "p-1",
		UploaderName:    "Asha",
		VendorName:      "Acme Supplies",
		Purpose:         PurposeProcurement,
		Amount:          1200,
		Hub:             HubPune,
		BillType:        BillTypeCovalent,
		PaymentSequence: BillFirst,
		PaymentDate:     time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Status:          StatusPending,
		CreatedAt:       time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		Version:         1,
	}
}

func TestPurchase_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(p *Purchase)
		wantField string
	}{
		{
			name:   "valid purchase",
			mutate: func(p *Purchase) {},
		},
		{
			name:      "blank uploader name",
			mutate:    func(p *Purchase) { p.UploaderName = "   " },
			wantField: "uploader_name",
		},
		{
			name:      "blank vendor name",
			mutate:    func(p *Purchase) { p.VendorName = "" },
			wantField: "vendor_name",
		},
		{
			name:      "unknown purpose",
			mutate:    func(p *Purchase) { p.Purpose = "Entertainment" },
			wantField: "purpose",
		},
		{
			name:      "zero amount",
			mutate:    func(p *Purchase) { p.Amount = 0 },
			wantField: "amount",
		},
		{
			name:      "negative amount",
			mutate:    func(p *Purchase) { p.Amount = -10 },
			wantField: "amount",
		},
		{
			name:      "unknown hub",
			mutate:    func(p *Purchase) { p.Hub = "chennai" },
			wantField: "hub",
		},
		{
			name:      "unknown bill type",
			mutate:    func(p *Purchase) { p.BillType = "paper" },
			wantField: "bill_type",
		},
		{
			name:      "unknown payment sequence",
			mutate:    func(p *Purchase) { p.PaymentSequence = "cash_only" },
			wantField: "payment_sequence",
		},
		{
			name:      "missing payment date",
			mutate:    func(p *Purchase) { p.PaymentDate = time.Time{} },
			wantField: "payment_date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPurchase()
			tt.mutate(p)

			err := p.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}

			vErr, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if vErr.Field != tt.wantField {
				t.Errorf("Validate() field = %q, want %q", vErr.Field, tt.wantField)
			}
		})
	}
}

func TestPurchase_Clone(t *testing.T) {
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	p := validPurchase()
	p.Extracted = &ExtractedData{VendorName: "Acme Supplies", Amount: 1200, Confidence: 90}
	p.Reconciliation = &ReconciliationReport{VendorNameMatch: true, AmountMatch: true, Confidence: 90}
	p.DirectorApproval = &Approval{Approved: true, Date: now}

	cp := p.Clone()

	cp.Status = StatusRejected
	cp.Extracted.VendorName = "changed"
	cp.DirectorApproval.Approved = false

	if p.Status != StatusPending {
		t.Errorf("Clone() shares status: %v", p.Status)
	}
	if p.Extracted.VendorName != "Acme Supplies" {
		t.Errorf("Clone() shares extracted data: %q", p.Extracted.VendorName)
	}
	if !p.DirectorApproval.Approved {
		t.Errorf("Clone() shares approval record")
	}
}

func TestPaymentSequence_RequiresBill(t *testing.T) {
	tests := []struct {
		seq  PaymentSequence
		want bool
	}{
		{PaymentFirst, true},
		{BillFirst, true},
		{PaymentWithoutBill, false},
	}

	for _, tt := range tests {
		if got := tt.seq.RequiresBill(); got != tt.want {
			t.Errorf("%s.RequiresBill() = %v, want %v", tt.seq, got, tt.want)
		}
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"director", RoleDirector},
		{"finance", RoleFinance},
		{"admin", RoleNone},
		{"", RoleNone},
		{"Director", RoleNone},
	}

	for _, tt := range tests {
		if got := ParseRole(tt.in); got != tt.want {
			t.Errorf("ParseRole(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	if !StatusRejected.IsTerminal() {
		t.Error("rejected should be terminal")
	}
	for _, s := range []Status{StatusPending, StatusDirectorApproved, StatusFinanceApproved} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
