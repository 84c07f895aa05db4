package approval

import (
	"fmt"
	"time"

	"github.com/garyjia/purchase-approval/internal/domain/entity"
)

// DefaultThreshold is the amount at or above which the director tier is
// mandatory before finance can approve.
const DefaultThreshold = 10000

// Policy decides which workflow actions are legal for a role on a purchase.
// It is a pure function of (role, amount, status, approvals): no hidden
// state, deterministic, and total.
type Policy struct {
	threshold float64
	machine   *Machine
}

// NewPolicy creates a policy with the given routing threshold. A
// non-positive threshold falls back to DefaultThreshold.
func NewPolicy(threshold float64) *Policy {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	p := &Policy{threshold: threshold}
	p.machine = p.buildMachine()
	return p
}

// Threshold returns the configured approval-routing threshold
func (p *Policy) Threshold() float64 {
	return p.threshold
}

// RequiresDirector returns true if the amount routes through the director
// tier
func (p *Policy) RequiresDirector(amount float64) bool {
	return amount >= p.threshold
}

// buildMachine assembles the transition table. Approval actions are
// configured before reject so CanAct prefers making progress over
// terminating.
func (p *Policy) buildMachine() *Machine {
	b := NewBuilder()

	b.Configure(entity.StatusPending).
		PermitIf(ActionDirectorApprove, entity.StatusDirectorApproved, p.directorApproveGuard).
		PermitIf(ActionFinanceApprove, entity.StatusFinanceApproved, p.financeApproveGuard).
		PermitIf(ActionReject, entity.StatusRejected, rejectGuard)

	b.Configure(entity.StatusDirectorApproved).
		PermitIf(ActionFinanceApprove, entity.StatusFinanceApproved, p.financeApproveGuard).
		PermitIf(ActionReject, entity.StatusRejected, rejectGuard)

	// finance_approved and rejected have no outgoing transitions

	return b.Build()
}

func (p *Policy) directorApproveGuard(role entity.Role, pur *entity.Purchase) bool {
	return role == entity.RoleDirector && p.RequiresDirector(pur.Amount)
}

func (p *Policy) financeApproveGuard(role entity.Role, pur *entity.Purchase) bool {
	if role != entity.RoleFinance {
		return false
	}
	if !p.RequiresDirector(pur.Amount) {
		return true
	}
	return pur.DirectorApproval != nil && pur.DirectorApproval.Approved
}

func rejectGuard(role entity.Role, pur *entity.Purchase) bool {
	return role.IsApprover()
}

// Allows reports whether the requested action is legal for the role on the
// purchase
func (p *Policy) Allows(role entity.Role, pur *entity.Purchase, action Action) bool {
	return p.machine.CanFire(role, pur, action)
}

// LegalActions returns every action currently legal for the role, in a
// stable order
func (p *Policy) LegalActions(role entity.Role, pur *entity.Purchase) []Action {
	return p.machine.PermittedActions(role, pur)
}

// CanAct returns the single action the role should take next, or ActionNone.
// When both an approval and a rejection are legal, the approval wins;
// callers that need the full set use LegalActions.
func (p *Policy) CanAct(role entity.Role, pur *entity.Purchase) Action {
	legal := p.LegalActions(role, pur)
	if len(legal) == 0 {
		return ActionNone
	}
	return legal[0]
}

// Apply executes the action on the purchase, updating status and approval
// records. Rejection clears both approvals. The purchase passed in is
// mutated, so callers hand in a copy of the loaded record.
func (p *Policy) Apply(pur *entity.Purchase, role entity.Role, action Action, now time.Time) error {
	if !action.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	next, err := p.machine.Target(role, pur, action)
	if err != nil {
		return err
	}

	pur.Status = next
	switch action {
	case ActionDirectorApprove:
		pur.DirectorApproval = &entity.Approval{Approved: true, Date: now}
	case ActionFinanceApprove:
		pur.FinanceApproval = &entity.Approval{Approved: true, Date: now}
	case ActionReject:
		pur.DirectorApproval = nil
		pur.FinanceApproval = nil
	}

	return nil
}
