package domain

import (
	"errors"
	"fmt"
	"time"
)

// Flow errors
var (
	ErrFlowNotFound    = errors.New("business process flow not found")
	ErrFlowNameEmpty   = errors.New("flow name is required")
	ErrFlowChainBroken = errors.New("flow steps do not chain: toStatus must equal the next step's fromStatus")
)

// StepCode identifies one transition definition within a flow. The built-in
// codes have dedicated editors in the console; any other code is valid
// configuration and renders as unsupported.
type StepCode string

const (
	StepCreate   StepCode = "create"
	StepInspect  StepCode = "inspect"
	StepStore    StepCode = "store"
	StepHandover StepCode = "handover"
)

// IsBuiltin checks whether the step code has a dedicated editor
func (c StepCode) IsBuiltin() bool {
	switch c {
	case StepCreate, StepInspect, StepStore, StepHandover:
		return true
	default:
		return false
	}
}

// Step is one transition definition (code, fromStatus, toStatus) within a flow
type Step struct {
	Code       StepCode       `bson:"code" json:"code" yaml:"code"`
	FromStatus PositionStatus `bson:"fromStatus" json:"fromStatus" yaml:"fromStatus"`
	ToStatus   PositionStatus `bson:"toStatus" json:"toStatus" yaml:"toStatus"`
}

// Flow is a named, ordered list of steps describing one business process's
// package-status lifecycle. Order defines the only sequencing.
type Flow struct {
	Name      string    `bson:"name" json:"name" yaml:"name"`
	Steps     []Step    `bson:"steps" json:"steps" yaml:"steps"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt" yaml:"-"`
}

// Validate checks the flow configuration. A flow with zero steps is valid
// ("flow has no steps" is a distinct state from "flow not found"). Consecutive
// steps must chain: step[i].toStatus == step[i+1].fromStatus. A broken chain
// would double-count or undercount per-step package totals, so it is rejected
// up front instead of trusted.
func (f *Flow) Validate() error {
	if f.Name == "" {
		return ErrFlowNameEmpty
	}

	for i, step := range f.Steps {
		if step.Code == "" {
			return fmt.Errorf("flow %s: step %d has no code", f.Name, i)
		}
		if !step.FromStatus.IsValid() {
			return fmt.Errorf("flow %s: step %s has invalid fromStatus %q", f.Name, step.Code, step.FromStatus)
		}
		if !step.ToStatus.IsValid() {
			return fmt.Errorf("flow %s: step %s has invalid toStatus %q", f.Name, step.Code, step.ToStatus)
		}
		if i > 0 && f.Steps[i-1].ToStatus != step.FromStatus {
			return fmt.Errorf("flow %s: step %s fromStatus %s does not match previous toStatus %s: %w",
				f.Name, step.Code, step.FromStatus, f.Steps[i-1].ToStatus, ErrFlowChainBroken)
		}
	}

	return nil
}

// TerminalStatus returns the toStatus of the final step. Reaching it on every
// package makes a transaction completable. The second return is false for an
// empty flow.
func (f *Flow) TerminalStatus() (PositionStatus, bool) {
	if len(f.Steps) == 0 {
		return "", false
	}
	return f.Steps[len(f.Steps)-1].ToStatus, true
}

// StepByCode returns the step with the given code
func (f *Flow) StepByCode(code StepCode) (Step, bool) {
	for _, step := range f.Steps {
		if step.Code == code {
			return step, true
		}
	}
	return Step{}, false
}

// StepAt returns the step at the given index
func (f *Flow) StepAt(index int) (Step, bool) {
	if index < 0 || index >= len(f.Steps) {
		return Step{}, false
	}
	return f.Steps[index], true
}
