package pricing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckStep_GatesInOrder(t *testing.T) {
	p := NewPart("")

	err := CheckStep(p, StepIdentification)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "reference", ve.Field)
	assert.Equal(t, StepIdentification, ve.Step)
	assert.ErrorIs(t, err, ErrInvalidPart)

	p.Reference = "CAISSON-01"
	require.NoError(t, CheckStep(p, StepIdentification))

	err = CheckStep(p, StepPanel)
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "panelId", ve.Field)

	p.PanelID = "mel-blanc-18"
	require.NoError(t, CheckStep(p, StepPanel))

	err = CheckStep(p, StepDimensions)
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "length", ve.Field)

	p.Length = 720
	err = CheckStep(p, StepDimensions)
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "width", ve.Field)

	p.Width = 560
	for s := StepDimensions; s <= StepFinish; s++ {
		assert.NoError(t, CheckStep(p, s), "step %d", s)
	}
}

func TestCheckStep_OutOfRange(t *testing.T) {
	p := scenarioA()
	assert.ErrorIs(t, CheckStep(p, 0), ErrInvalidPart)
	assert.ErrorIs(t, CheckStep(p, Step(StepCount+1)), ErrInvalidPart)
}

func TestCheckStep_QuantityBelowOne(t *testing.T) {
	p := scenarioA()
	p.Quantity = 0

	err := CheckStep(p, StepIdentification)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "quantity", ve.Field)
}

func TestFirstIncompleteStep(t *testing.T) {
	p := NewPart("A")
	assert.Equal(t, StepPanel, FirstIncompleteStep(p))

	p.PanelID = "x"
	assert.Equal(t, StepDimensions, FirstIncompleteStep(p))

	p.Length, p.Width = 100, 100
	assert.Equal(t, Step(0), FirstIncompleteStep(p))
}

func TestValidate_RequiresEverythingRegardlessOfStep(t *testing.T) {
	p := scenarioA()
	p.PanelID = ""

	err := Validate(p)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, StepPanel, ve.Step)
}

func TestValidate_AcceptsFullyLoadedPart(t *testing.T) {
	p := fullyLoaded(2)
	p.GrainDirection = GrainLength
	p.Finish = &Finish{Type: FinishVarnish, Color: "mat", Faces: []Face{FaceFront, FaceBack}}

	require.NoError(t, Validate(p))
}

func TestValidate_DetailRules(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Part)
		step  Step
		field string
	}{
		{"duplicate side", func(p *Part) { p.Edges = append(p.Edges, EdgeSelection{Position: SideTop}) }, StepEdges, "edges"},
		{"repeated side", func(p *Part) { p.Edges = []EdgeSelection{{Position: SideTop}, {Position: SideTop}} }, StepEdges, "edges.position"},
		{"unknown side", func(p *Part) { p.Edges[0].Position = "front" }, StepEdges, "edges.position"},
		{"grain", func(p *Part) { p.GrainDirection = "diagonal" }, StepDimensions, "grainDirection"},
		{"line side", func(p *Part) { p.DrillingLines[0].Side = "middle" }, StepDrilling, "drillingLines.side"},
		{"line count", func(p *Part) { p.DrillingLines[0].Count = 0 }, StepDrilling, "drillingLines.count"},
		{"line spacing", func(p *Part) { p.DrillingLines[0].Spacing = 0 }, StepDrilling, "drillingLines"},
		{"point type", func(p *Part) { p.DrillingPoints[0].Type = "counterbore" }, StepDrilling, "drillingPoints.type"},
		{"point diameter", func(p *Part) { p.DrillingPoints[0].Diameter = 0 }, StepDrilling, "drillingPoints"},
		{"blind depth", func(p *Part) { p.DrillingPoints[0].Depth = 0 }, StepDrilling, "drillingPoints.depth"},
		{"hardware id", func(p *Part) { p.HardwareDrillings[0].HardwareID = "" }, StepHardware, "hardwareDrillings.hardwareId"},
		{"hardware face", func(p *Part) { p.HardwareDrillings[0].Face = FaceBoth }, StepHardware, "hardwareDrillings.face"},
		{"machining type", func(p *Part) { p.MachiningOperations[0].Type = "engrave" }, StepMachining, "machiningOperations.type"},
		{"rebate sides", func(p *Part) {
			p.MachiningOperations[1].Position = map[string]float64{"sides": 5}
		}, StepMachining, "machiningOperations.position.sides"},
		{"rebate sides zero", func(p *Part) {
			p.MachiningOperations[1].Position = map[string]float64{"sides": 0}
		}, StepMachining, "machiningOperations.position.sides"},
		{"rebate sides negative", func(p *Part) {
			p.MachiningOperations[1].Position = map[string]float64{"sides": -3}
		}, StepMachining, "machiningOperations.position.sides"},
		{"rebate sides fractional", func(p *Part) {
			p.MachiningOperations[1].Position = map[string]float64{"sides": 2.9}
		}, StepMachining, "machiningOperations.position.sides"},
		{"finish type", func(p *Part) { p.Finish = &Finish{Type: "lacquer"} }, StepFinish, "finish.type"},
		{"finish face", func(p *Part) { p.Finish = &Finish{Type: FinishWax, Faces: []Face{"edge"}} }, StepFinish, "finish.faces"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := fullyLoaded(1)
			tt.edit(&p)

			err := Validate(p)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.step, ve.Step)
			assert.Equal(t, tt.field, ve.Field)
			assert.ErrorIs(t, err, ErrInvalidPart)
		})
	}
}
