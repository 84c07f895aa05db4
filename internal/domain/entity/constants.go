package entity

// Purpose is the declared reason for a purchase request
type Purpose string

const (
	PurposeProcurement   Purpose = "Procurement"
	PurposeSalary        Purpose = "Salary"
	PurposeRepair        Purpose = "Repair"
	PurposeSmallPurchase Purpose = "Small Purchase"
)

var validPurposes = map[Purpose]bool{
	PurposeProcurement:   true,
	PurposeSalary:        true,
	PurposeRepair:        true,
	PurposeSmallPurchase: true,
}

// IsValid returns true if the purpose is one of the known values
func (p Purpose) IsValid() bool {
	return validPurposes[p]
}

// Hub is the office location a purchase is booked against.
// Informational only, it has no effect on approval routing.
type Hub string

const (
	HubMumbai    Hub = "mumbai"
	HubDelhi     Hub = "delhi"
	HubBangalore Hub = "bangalore"
	HubPune      Hub = "pune"
)

var validHubs = map[Hub]bool{
	HubMumbai:    true,
	HubDelhi:     true,
	HubBangalore: true,
	HubPune:      true,
}

// IsValid returns true if the hub is one of the known values
func (h Hub) IsValid() bool {
	return validHubs[h]
}

// BillType classifies the bill document. Informational only.
type BillType string

const (
	BillTypeQuantum  BillType = "quantum"
	BillTypeCovalent BillType = "covalent"
)

// IsValid returns true if the bill type is one of the known values
func (b BillType) IsValid() bool {
	return b == BillTypeQuantum || b == BillTypeCovalent
}

// PaymentSequence describes the ordering of payment and bill.
// A bill document is mandatory at submission unless the sequence is
// PaymentWithoutBill.
type PaymentSequence string

const (
	PaymentFirst       PaymentSequence = "payment_first"
	BillFirst          PaymentSequence = "bill_first"
	PaymentWithoutBill PaymentSequence = "payment_without_bill"
)

var validSequences = map[PaymentSequence]bool{
	PaymentFirst:       true,
	BillFirst:          true,
	PaymentWithoutBill: true,
}

// IsValid returns true if the payment sequence is one of the known values
func (s PaymentSequence) IsValid() bool {
	return validSequences[s]
}

// RequiresBill returns true if a bill document must accompany submission
func (s PaymentSequence) RequiresBill() bool {
	return s != PaymentWithoutBill
}

// Status is a purchase request's position in the approval lifecycle
type Status string

const (
	StatusPending          Status = "pending"
	StatusDirectorApproved Status = "director_approved"
	StatusFinanceApproved  Status = "finance_approved"
	StatusRejected         Status = "rejected"
)

var validStatuses = map[Status]bool{
	StatusPending:          true,
	StatusDirectorApproved: true,
	StatusFinanceApproved:  true,
	StatusRejected:         true,
}

// IsValid returns true if the status is a valid lifecycle status
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// IsTerminal returns true if no further transitions are allowed from s
func (s Status) IsTerminal() bool {
	return s == StatusRejected
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// Role identifies the approval tier a caller acts as
type Role string

const (
	RoleNone     Role = "none"
	RoleDirector Role = "director"
	RoleFinance  Role = "finance"
)

// IsApprover returns true if the role belongs to one of the two approval tiers
func (r Role) IsApprover() bool {
	return r == RoleDirector || r == RoleFinance
}

// ParseRole maps a caller-presented role string to a Role.
// Anything unrecognized maps to RoleNone.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleDirector:
		return RoleDirector
	case RoleFinance:
		return RoleFinance
	default:
		return RoleNone
	}
}
