package approval

import (
	"fmt"

	"github.com/garyjia/purchase-approval/internal/domain/entity"
)

// GuardFunc evaluates whether a transition is allowed for the acting role
// on the given purchase
type GuardFunc func(role entity.Role, p *entity.Purchase) bool

// transition represents a status transition with optional guard
type transition struct {
	toStatus entity.Status
	guard    GuardFunc
}

// statusConfig holds the transitions configured for a single status.
// order preserves configuration order so permitted-action listings are
// deterministic.
type statusConfig struct {
	fromStatus  entity.Status
	transitions map[Action][]transition
	order       []Action
}

// Builder assembles the transition table for an approval machine
type Builder struct {
	configurations map[entity.Status]*statusConfig
}

// NewBuilder creates a new machine builder
func NewBuilder() *Builder {
	return &Builder{
		configurations: make(map[entity.Status]*statusConfig),
	}
}

// Configure returns the configuration for the given status, creating it if
// needed
func (b *Builder) Configure(status entity.Status) *StatusConfiguration {
	if !status.IsValid() {
		panic(fmt.Sprintf("invalid status: %s", status))
	}

	config, exists := b.configurations[status]
	if !exists {
		config = &statusConfig{
			fromStatus:  status,
			transitions: make(map[Action][]transition),
		}
		b.configurations[status] = config
	}

	return &StatusConfiguration{config: config}
}

// Build creates an immutable machine from the configured transitions
func (b *Builder) Build() *Machine {
	configsCopy := make(map[entity.Status]*statusConfig)
	for status, config := range b.configurations {
		transitionsCopy := make(map[Action][]transition)
		for action, ts := range config.transitions {
			transitionsCopy[action] = append([]transition{}, ts...)
		}
		configsCopy[status] = &statusConfig{
			fromStatus:  status,
			transitions: transitionsCopy,
			order:       append([]Action{}, config.order...),
		}
	}

	return &Machine{configurations: configsCopy}
}

// StatusConfiguration configures transitions out of a specific status
type StatusConfiguration struct {
	config *statusConfig
}

// Permit allows an action to transition to the target status unconditionally
func (c *StatusConfiguration) Permit(action Action, toStatus entity.Status) *StatusConfiguration {
	return c.PermitIf(action, toStatus, nil)
}

// PermitIf allows an action to transition to the target status when the
// guard passes
func (c *StatusConfiguration) PermitIf(action Action, toStatus entity.Status, guard GuardFunc) *StatusConfiguration {
	if !toStatus.IsValid() {
		panic(fmt.Sprintf("invalid target status: %s", toStatus))
	}

	if _, exists := c.config.transitions[action]; !exists {
		c.config.order = append(c.config.order, action)
	}
	c.config.transitions[action] = append(c.config.transitions[action], transition{
		toStatus: toStatus,
		guard:    guard,
	})

	return c
}

// Machine validates and resolves approval transitions. Unlike a classic
// state machine it holds no current state: the status lives on the purchase
// record, and every call re-evaluates against the record passed in.
type Machine struct {
	configurations map[entity.Status]*statusConfig
}

// CanFire returns true if the action is permitted for the role from the
// purchase's current status
func (m *Machine) CanFire(role entity.Role, p *entity.Purchase, action Action) bool {
	config, exists := m.configurations[p.Status]
	if !exists {
		return false
	}

	for _, t := range config.transitions[action] {
		if t.guard == nil || t.guard(role, p) {
			return true
		}
	}
	return false
}

// Target resolves the status the action transitions to, or an error when the
// action is not permitted
func (m *Machine) Target(role entity.Role, p *entity.Purchase, action Action) (entity.Status, error) {
	config, exists := m.configurations[p.Status]
	if !exists {
		return "", fmt.Errorf("%w: cannot fire %s from status %s (no configuration)", ErrInvalidTransition, action, p.Status)
	}

	ts, exists := config.transitions[action]
	if !exists || len(ts) == 0 {
		return "", fmt.Errorf("%w: cannot fire %s from status %s", ErrInvalidTransition, action, p.Status)
	}

	for _, t := range ts {
		if t.guard == nil || t.guard(role, p) {
			return t.toStatus, nil
		}
	}

	return "", fmt.Errorf("%w: %s from status %s", ErrGuardFailed, action, p.Status)
}

// PermittedActions returns the actions the role may currently fire, in
// configuration order
func (m *Machine) PermittedActions(role entity.Role, p *entity.Purchase) []Action {
	config, exists := m.configurations[p.Status]
	if !exists {
		return []Action{}
	}

	actions := make([]Action, 0, len(config.order))
	for _, action := range config.order {
		if m.CanFire(role, p, action) {
			actions = append(actions, action)
		}
	}
	return actions
}
