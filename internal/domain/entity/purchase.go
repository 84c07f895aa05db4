package entity

import (
	"fmt"
	"strings"
	"time"
)

// Approval records a single tier's sign-off. Approved is always true when
// the record exists; rejection removes the record entirely.
type Approval struct {
	Approved bool      `json:"approved"`
	Date     time.Time `json:"date"`
}

// ExtractedData holds structured fields read from an uploaded bill by the
// document extraction service. Confidence is a percentage in [0,100].
type ExtractedData struct {
	VendorName    string  `json:"vendor_name,omitempty"`
	Amount        float64 `json:"amount,omitempty"`
	InvoiceNumber string  `json:"invoice_number,omitempty"`
	TaxNumber     string  `json:"tax_number,omitempty"`
	Confidence    float64 `json:"confidence,omitempty"`
}

// ReconciliationReport compares user-declared fields against extracted
// fields. It is advisory only and never gates a transition.
type ReconciliationReport struct {
	VendorNameMatch bool    `json:"vendor_name_match"`
	AmountMatch     bool    `json:"amount_match"`
	Confidence      float64 `json:"confidence"`
}

// Purchase is the aggregate root of the approval workflow
type Purchase struct {
	ID               string                `json:"id"`
	UploaderName     string                `json:"uploader_name"`
	VendorName       string                `json:"vendor_name"`
	Purpose          Purpose               `json:"purpose"`
	Amount           float64               `json:"amount"`
	Hub              Hub                   `json:"hub"`
	BillType         BillType              `json:"bill_type"`
	PaymentSequence  PaymentSequence       `json:"payment_sequence"`
	PaymentDate      time.Time             `json:"payment_date"`
	FileURL          string                `json:"file_url,omitempty"`
	FileName         string                `json:"file_name,omitempty"`
	Extracted        *ExtractedData        `json:"extracted_data,omitempty"`
	Reconciliation   *ReconciliationReport `json:"reconciliation,omitempty"`
	Status           Status                `json:"status"`
	DirectorApproval *Approval             `json:"director_approval,omitempty"`
	FinanceApproval  *Approval             `json:"finance_approval,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
	Version          int64                 `json:"version"`
}

// ValidationError reports a missing or malformed submission field
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}

// Validate checks the field-level submission invariants. The document
// requirement is checked by the lifecycle engine since the document is not
// part of the aggregate until stored.
func (p *Purchase) Validate() error {
	if strings.TrimSpace(p.UploaderName) == "" {
		return &ValidationError{Field: "uploader_name", Reason: "must not be empty"}
	}
	if strings.TrimSpace(p.VendorName) == "" {
		return &ValidationError{Field: "vendor_name", Reason: "must not be empty"}
	}
	if !p.Purpose.IsValid() {
		return &ValidationError{Field: "purpose", Reason: fmt.Sprintf("unknown purpose %q", p.Purpose)}
	}
	if p.Amount <= 0 {
		return &ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if !p.Hub.IsValid() {
		return &ValidationError{Field: "hub", Reason: fmt.Sprintf("unknown hub %q", p.Hub)}
	}
	if !p.BillType.IsValid() {
		return &ValidationError{Field: "bill_type", Reason: fmt.Sprintf("unknown bill type %q", p.BillType)}
	}
	if !p.PaymentSequence.IsValid() {
		return &ValidationError{Field: "payment_sequence", Reason: fmt.Sprintf("unknown payment sequence %q", p.PaymentSequence)}
	}
	if p.PaymentDate.IsZero() {
		return &ValidationError{Field: "payment_date", Reason: "is required"}
	}
	return nil
}

// Clone returns a deep copy of the purchase so policy evaluation and
// compare-and-swap writes never mutate the loaded record.
func (p *Purchase) Clone() *Purchase {
	cp := *p
	if p.Extracted != nil {
		x := *p.Extracted
		cp.Extracted = &x
	}
	if p.Reconciliation != nil {
		r := *p.Reconciliation
		cp.Reconciliation = &r
	}
	if p.DirectorApproval != nil {
		a := *p.DirectorApproval
		cp.DirectorApproval = &a
	}
	if p.FinanceApproval != nil {
		a := *p.FinanceApproval
		cp.FinanceApproval = &a
	}
	return &cp
}
