package pricing

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPart marks configuration errors caught before or inside pricing.
var ErrInvalidPart = errors.New("invalid part configuration")

// Step is a position in the configuration wizard.
type Step int

const (
	StepIdentification Step = iota + 1
	StepPanel
	StepDimensions
	StepEdges
	StepDrilling
	StepHardware
	StepMachining
	StepFinish
)

// StepCount is the number of wizard steps.
const StepCount = int(StepFinish)

// ValidationError reports the first failing rule for a field.
type ValidationError struct {
	Step    Step
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidPart
}

type rule struct {
	step  Step
	field string
	msg   string
	ok    func(Part) bool
}

// requiredRules is the single source for both step gating and submission.
// Steps after StepDimensions have no required fields.
var requiredRules = []rule{
	{StepIdentification, "reference", "reference is required", func(p Part) bool { return strings.TrimSpace(p.Reference) != "" }},
	{StepIdentification, "quantity", "quantity must be at least 1", func(p Part) bool { return p.Quantity >= 1 }},
	{StepPanel, "panelId", "a panel must be selected", func(p Part) bool { return p.PanelID != "" }},
	{StepDimensions, "length", "length must be greater than 0", func(p Part) bool { return p.Length > 0 }},
	{StepDimensions, "width", "width must be greater than 0", func(p Part) bool { return p.Width > 0 }},
}

// CheckStep validates every required rule up to and including step. It is the
// guard for leaving a wizard step.
func CheckStep(p Part, step Step) error {
	if step < StepIdentification || int(step) > StepCount {
		return &ValidationError{Step: step, Field: "step", Message: fmt.Sprintf("step must be between 1 and %d", StepCount)}
	}
	for _, r := range requiredRules {
		if r.step > step {
			break
		}
		if !r.ok(p) {
			return &ValidationError{Step: r.step, Field: r.field, Message: r.msg}
		}
	}
	return nil
}

// FirstIncompleteStep returns the earliest step whose required rules fail, or 0.
func FirstIncompleteStep(p Part) Step {
	for _, r := range requiredRules {
		if !r.ok(p) {
			return r.step
		}
	}
	return 0
}

// Validate is the submission guard: all required fields whatever the wizard state,
// then the optional sections' detail rules.
func Validate(p Part) error {
	if err := CheckStep(p, StepFinish); err != nil {
		return err
	}
	return validateDetails(p)
}

func validateDetails(p Part) error {
	if len(p.Edges) > len(Sides) {
		return &ValidationError{Step: StepEdges, Field: "edges", Message: "at most one entry per side"}
	}
	seen := make(map[Side]bool, len(Sides))
	for _, e := range p.Edges {
		if !e.Position.valid() {
			return &ValidationError{Step: StepEdges, Field: "edges.position", Message: fmt.Sprintf("unknown side %q", e.Position)}
		}
		if seen[e.Position] {
			return &ValidationError{Step: StepEdges, Field: "edges.position", Message: fmt.Sprintf("side %s listed twice", e.Position)}
		}
		seen[e.Position] = true
	}

	switch p.GrainDirection {
	case GrainNone, GrainLength, GrainWidth:
	default:
		return &ValidationError{Step: StepDimensions, Field: "grainDirection", Message: fmt.Sprintf("unknown grain direction %q", p.GrainDirection)}
	}

	for _, l := range p.DrillingLines {
		if !l.Side.valid() {
			return &ValidationError{Step: StepDrilling, Field: "drillingLines.side", Message: fmt.Sprintf("unknown side %q", l.Side)}
		}
		if l.Count < 1 {
			return &ValidationError{Step: StepDrilling, Field: "drillingLines.count", Message: "count must be at least 1"}
		}
		if l.Spacing <= 0 || l.Diameter <= 0 || l.Depth <= 0 || l.StartOffset < 0 {
			return &ValidationError{Step: StepDrilling, Field: "drillingLines", Message: "spacing, diameter and depth must be positive"}
		}
	}
	for _, pt := range p.DrillingPoints {
		if pt.Type != DrillThrough && pt.Type != DrillBlind {
			return &ValidationError{Step: StepDrilling, Field: "drillingPoints.type", Message: fmt.Sprintf("unknown drilling type %q", pt.Type)}
		}
		if pt.Diameter <= 0 || pt.X < 0 || pt.Y < 0 {
			return &ValidationError{Step: StepDrilling, Field: "drillingPoints", Message: "diameter must be positive and coordinates non-negative"}
		}
		if pt.Type == DrillBlind && pt.Depth <= 0 {
			return &ValidationError{Step: StepDrilling, Field: "drillingPoints.depth", Message: "blind holes need a depth"}
		}
	}

	for _, h := range p.HardwareDrillings {
		if h.HardwareID == "" {
			return &ValidationError{Step: StepHardware, Field: "hardwareDrillings.hardwareId", Message: "hardware is required"}
		}
		if h.Face != FaceFront && h.Face != FaceBack {
			return &ValidationError{Step: StepHardware, Field: "hardwareDrillings.face", Message: fmt.Sprintf("unknown face %q", h.Face)}
		}
	}

	for _, op := range p.MachiningOperations {
		switch op.Type {
		case MachiningGroove, MachiningNotch, MachiningCutout:
		case MachiningRebate:
			if _, err := RebateSides(op); err != nil {
				return &ValidationError{Step: StepMachining, Field: "machiningOperations.position.sides", Message: "rebate sides must be between 1 and 4"}
			}
		default:
			return &ValidationError{Step: StepMachining, Field: "machiningOperations.type", Message: fmt.Sprintf("unknown machining type %q", op.Type)}
		}
	}

	if f := p.Finish; f != nil {
		switch f.Type {
		case FinishNone, FinishVarnish, FinishOil, FinishWax, FinishPaint:
		default:
			return &ValidationError{Step: StepFinish, Field: "finish.type", Message: fmt.Sprintf("unknown finish %q", f.Type)}
		}
		for _, face := range f.Faces {
			if face != FaceFront && face != FaceBack && face != FaceBoth {
				return &ValidationError{Step: StepFinish, Field: "finish.faces", Message: fmt.Sprintf("unknown face %q", face)}
			}
		}
	}
	return nil
}
