package pricing

// Side identifies one of the four cut edges of a rectangular part.
type Side string

const (
	SideTop    Side = "top"
	SideBottom Side = "bottom"
	SideLeft   Side = "left"
	SideRight  Side = "right"
)

// Sides lists the four sides in display order.
var Sides = [4]Side{SideTop, SideBottom, SideLeft, SideRight}

func (s Side) valid() bool {
	switch s {
	case SideTop, SideBottom, SideLeft, SideRight:
		return true
	}
	return false
}

// GrainDirection is the requested grain orientation. The empty value means no constraint.
type GrainDirection string

const (
	GrainNone   GrainDirection = ""
	GrainLength GrainDirection = "length"
	GrainWidth  GrainDirection = "width"
)

// DrillType distinguishes through holes from blind holes.
type DrillType string

const (
	DrillThrough DrillType = "through"
	DrillBlind   DrillType = "blind"
)

// Face is the panel face a hardware drilling is made on.
type Face string

const (
	FaceFront Face = "front"
	FaceBack  Face = "back"
	FaceBoth  Face = "both"
)

// MachiningType enumerates the supported machining operations.
type MachiningType string

const (
	MachiningGroove MachiningType = "groove"
	MachiningRebate MachiningType = "rebate"
	MachiningNotch  MachiningType = "notch"
	MachiningCutout MachiningType = "cutout"
)

// FinishType enumerates surface finishes.
type FinishType string

const (
	FinishNone    FinishType = "none"
	FinishVarnish FinishType = "varnish"
	FinishOil     FinishType = "oil"
	FinishWax     FinishType = "wax"
	FinishPaint   FinishType = "paint"
)

// EdgeSelection is the banding chosen for one side. An empty EdgeID means no banding.
type EdgeSelection struct {
	Position Side   `json:"position"`
	EdgeID   string `json:"edgeId"`
	EdgeName string `json:"edgeName,omitempty"`
}

// DrillingLine is a row of evenly spaced holes along one side (system 32).
type DrillingLine struct {
	ID          string  `json:"id,omitempty"`
	Side        Side    `json:"side"`
	StartOffset float64 `json:"startOffset"`
	Spacing     float64 `json:"spacing"`
	Count       int     `json:"count"`
	Diameter    float64 `json:"diameter"`
	Depth       float64 `json:"depth"`
}

// DrillingPoint is a single hole outside any line.
type DrillingPoint struct {
	ID       string    `json:"id,omitempty"`
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Diameter float64   `json:"diameter"`
	Depth    float64   `json:"depth"`
	Type     DrillType `json:"type"`
}

// Position is a point on the part face, in mm from the origin corner.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// HardwareDrilling is the bore pattern for a piece of hardware (hinge cup, connector).
type HardwareDrilling struct {
	ID           string   `json:"id,omitempty"`
	HardwareID   string   `json:"hardwareId"`
	HardwareName string   `json:"hardwareName,omitempty"`
	Position     Position `json:"position"`
	Face         Face     `json:"face"`
}

// MachiningOperation is a free-form machining request. Dimensions and Position are
// interpreted per type; a rebate reads Position["sides"].
type MachiningOperation struct {
	ID         string             `json:"id,omitempty"`
	Type       MachiningType      `json:"type"`
	Dimensions map[string]float64 `json:"dimensions"`
	Position   map[string]float64 `json:"position"`
}

// Finish is the optional surface treatment.
type Finish struct {
	Type  FinishType `json:"type"`
	Color string     `json:"color,omitempty"`
	Faces []Face     `json:"faces"`
}

// Part is one orderable cut piece with all its options. Dimensions are in mm.
type Part struct {
	Reference string `json:"reference"`
	Quantity  int    `json:"quantity"`
	Notes     string `json:"notes,omitempty"`

	PanelID   string `json:"panelId"`
	PanelName string `json:"panelName,omitempty"`

	Length         int            `json:"length"`
	Width          int            `json:"width"`
	GrainDirection GrainDirection `json:"grainDirection"`

	Edges               []EdgeSelection      `json:"edges"`
	DrillingLines       []DrillingLine       `json:"drillingLines"`
	DrillingPoints      []DrillingPoint      `json:"drillingPoints"`
	HardwareDrillings   []HardwareDrilling   `json:"hardwareDrillings"`
	MachiningOperations []MachiningOperation `json:"machiningOperations"`
	Finish              *Finish              `json:"finish,omitempty"`
}

// NewPart returns an empty configuration with quantity 1 and one unbanded entry per side.
func NewPart(reference string) Part {
	edges := make([]EdgeSelection, 0, len(Sides))
	for _, s := range Sides {
		edges = append(edges, EdgeSelection{Position: s})
	}
	return Part{
		Reference: reference,
		Quantity:  1,
		Edges:     edges,
	}
}

// EdgeIDs returns the distinct edge ids referenced by the part.
func (p Part) EdgeIDs() []string {
	seen := make(map[string]bool, len(p.Edges))
	var ids []string
	for _, e := range p.Edges {
		if e.EdgeID == "" || seen[e.EdgeID] {
			continue
		}
		seen[e.EdgeID] = true
		ids = append(ids, e.EdgeID)
	}
	return ids
}

// BandedSides counts the sides carrying edge banding.
func (p Part) BandedSides() int {
	n := 0
	for _, e := range p.Edges {
		if e.EdgeID != "" {
			n++
		}
	}
	return n
}

// Duplicate copies the part under a derived reference, deep-copying its slices.
func (p Part) Duplicate() Part {
	d := p
	d.Reference = p.Reference + "-copie"
	d.Edges = append([]EdgeSelection(nil), p.Edges...)
	d.DrillingLines = append([]DrillingLine(nil), p.DrillingLines...)
	d.DrillingPoints = append([]DrillingPoint(nil), p.DrillingPoints...)
	d.HardwareDrillings = append([]HardwareDrilling(nil), p.HardwareDrillings...)
	d.MachiningOperations = make([]MachiningOperation, 0, len(p.MachiningOperations))
	for _, op := range p.MachiningOperations {
		d.MachiningOperations = append(d.MachiningOperations, MachiningOperation{
			ID:         op.ID,
			Type:       op.Type,
			Dimensions: copyMap(op.Dimensions),
			Position:   copyMap(op.Position),
		})
	}
	if p.Finish != nil {
		f := *p.Finish
		f.Faces = append([]Face(nil), p.Finish.Faces...)
		d.Finish = &f
	}
	return d
}

func copyMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
