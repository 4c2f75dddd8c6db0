package pricing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPart(t *testing.T) {
	p := NewPart("TABLETTE")

	assert.Equal(t, 1, p.Quantity)
	require.Len(t, p.Edges, 4)
	for i, s := range Sides {
		assert.Equal(t, s, p.Edges[i].Position)
		assert.Empty(t, p.Edges[i].EdgeID)
	}
	assert.Zero(t, p.BandedSides())
	assert.Empty(t, p.EdgeIDs())
}

func TestPart_EdgeIDsDistinct(t *testing.T) {
	p := withEdge(withEdge(withEdge(NewPart("A"), SideTop, "abs"), SideBottom, "abs"), SideLeft, "laser")

	assert.Equal(t, []string{"abs", "laser"}, p.EdgeIDs())
	assert.Equal(t, 3, p.BandedSides())
}

func TestPart_DuplicateIsDeep(t *testing.T) {
	orig := fullyLoaded(2)
	orig.Finish = &Finish{Type: FinishOil, Faces: []Face{FaceFront}}

	cp := orig.Duplicate()
	assert.Equal(t, "P1-copie", cp.Reference)

	cp.Edges[0].EdgeID = "other"
	cp.DrillingLines[0].Count = 99
	cp.MachiningOperations[0].Dimensions["width"] = 1
	cp.Finish.Faces[0] = FaceBack

	assert.Equal(t, "abs", orig.Edges[0].EdgeID)
	assert.Equal(t, 5, orig.DrillingLines[0].Count)
	assert.Equal(t, 8.0, orig.MachiningOperations[0].Dimensions["width"])
	assert.Equal(t, FaceFront, orig.Finish.Faces[0])
}

func TestPart_JSONFieldNames(t *testing.T) {
	raw := `{
		"reference": "PORTE-G",
		"quantity": 2,
		"panelId": "p-1",
		"length": 716,
		"width": 396,
		"grainDirection": "length",
		"edges": [{"position": "top", "edgeId": "e-1"}],
		"drillingLines": [],
		"drillingPoints": [],
		"hardwareDrillings": [{"hardwareId": "hinge", "position": {"x": 22, "y": 100}, "face": "back"}],
		"machiningOperations": [{"type": "rebate", "dimensions": {}, "position": {"sides": 2}}],
		"finish": {"type": "paint", "faces": ["both"]}
	}`

	var p Part
	require.NoError(t, json.Unmarshal([]byte(raw), &p))

	assert.Equal(t, "PORTE-G", p.Reference)
	assert.Equal(t, 716, p.Length)
	assert.Equal(t, GrainLength, p.GrainDirection)
	assert.Equal(t, []string{"e-1"}, p.EdgeIDs())
	assert.Equal(t, FaceBack, p.HardwareDrillings[0].Face)
	sides, err := RebateSides(p.MachiningOperations[0])
	require.NoError(t, err)
	assert.Equal(t, 2, sides)
	require.NotNil(t, p.Finish)
	assert.Equal(t, FinishPaint, p.Finish.Type)
}

func TestGeometry(t *testing.T) {
	equalDecimal(t, "meters", Meters(1237), "1.237")
	equalDecimal(t, "surface", SurfaceM2(800, 400), "0.32")
	assert.Equal(t, 800, SideLength(SideBottom, 800, 400))
	assert.Equal(t, 400, SideLength(SideRight, 800, 400))
	assert.Zero(t, SideLength("nowhere", 800, 400))
	equalDecimal(t, "rebate 3 sides", RebateMeters(800, 400, 3), "1.8")
}
