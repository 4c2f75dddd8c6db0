package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/panelpro/internal/db/dbtest"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func panelInput(ref, name, supplier string, material PanelMaterial, thickness, price string) PanelInput {
	return PanelInput{
		Reference:   ref,
		Name:        name,
		Supplier:    supplier,
		Material:    material,
		ThicknessMM: dec(thickness),
		LengthMM:    2800,
		WidthMM:     2070,
		PricePerM2:  dec(price),
	}
}

func edgeInput(ref, name string, material EdgeMaterial, price string) EdgeInput {
	return EdgeInput{
		Reference:     ref,
		Name:          name,
		Material:      material,
		ThicknessMM:   dec("1"),
		WidthMM:       dec("23"),
		PricePerMeter: dec(price),
	}
}

func seedCatalog(t *testing.T, s *Store) (panels []Panel, edges []Edge) {
	t.Helper()
	ctx := context.Background()

	for _, in := range []PanelInput{
		panelInput("MEL-BLANC-18", "Mélaminé Blanc 18mm", "Egger", MaterialMelamine, "18", "25.50"),
		panelInput("MEL-CHENE-18", "Mélaminé Chêne 18mm", "Egger", MaterialMelamine, "18", "32"),
		panelInput("MDF-19", "MDF Standard 19mm", "Kronospan", MaterialMDF, "19", "18"),
		panelInput("STRAT-8", "Stratifié 8mm", "Polyrey", MaterialLaminate, "8", "45"),
	} {
		p, err := s.CreatePanel(ctx, in)
		require.NoError(t, err)
		panels = append(panels, p)
	}
	for _, in := range []EdgeInput{
		edgeInput("ABS-BLANC-23", "ABS Blanc 23x1", EdgeABS, "0.85"),
		edgeInput("ABS-CHENE-23", "ABS Chêne 23x1", EdgeABS, "1.20"),
		edgeInput("ABS-LASER-BLANC-23", "ABS Laser Blanc", EdgeABSLaser, "1.50"),
	} {
		e, err := s.CreateEdge(ctx, in)
		require.NoError(t, err)
		edges = append(edges, e)
	}
	return panels, edges
}

func boolPtr(b bool) *bool { return &b }

func TestListPanels_Filters(t *testing.T) {
	s := NewStore(dbtest.Open(t))
	ctx := context.Background()
	panels, _ := seedCatalog(t, s)
	require.NoError(t, s.DeactivatePanel(ctx, panels[3].ID))

	active := boolPtr(true)

	all, total, err := s.ListPanels(ctx, PanelFilter{Active: active})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, all, 3)
	assert.Equal(t, "MDF Standard 19mm", all[0].Name)

	mel, total, err := s.ListPanels(ctx, PanelFilter{Active: active, Material: MaterialMelamine})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, mel, 2)

	bySupplier, _, err := s.ListPanels(ctx, PanelFilter{Active: active, Supplier: "krono"})
	require.NoError(t, err)
	require.Len(t, bySupplier, 1)
	assert.Equal(t, "MDF-19", bySupplier[0].Reference)

	byThickness, _, err := s.ListPanels(ctx, PanelFilter{Active: active, Thickness: decimal.NewNullDecimal(dec("18"))})
	require.NoError(t, err)
	assert.Len(t, byThickness, 2)

	bySearch, _, err := s.ListPanels(ctx, PanelFilter{Active: active, Search: "CHENE"})
	require.NoError(t, err)
	require.Len(t, bySearch, 1)
	assert.Equal(t, "MEL-CHENE-18", bySearch[0].Reference)

	page, total, err := s.ListPanels(ctx, PanelFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, total, "nil Active lists inactive panels too")
	assert.Len(t, page, 2)

	inactive, _, err := s.ListPanels(ctx, PanelFilter{Active: boolPtr(false)})
	require.NoError(t, err)
	require.Len(t, inactive, 1)
	assert.False(t, inactive[0].Active)
}

func TestCreatePanel_Validation(t *testing.T) {
	s := NewStore(dbtest.Open(t))
	ctx := context.Background()
	seedCatalog(t, s)

	_, err := s.CreatePanel(ctx, panelInput("MEL-BLANC-18", "Dup", "Egger", MaterialMelamine, "18", "10"))
	require.ErrorIs(t, err, ErrDuplicateRef)

	bad := panelInput("X", "X", "Egger", "PLASTIQUE", "18", "10")
	_, err = s.CreatePanel(ctx, bad)
	require.ErrorIs(t, err, ErrInvalidInput)

	bad = panelInput("X", "X", "Egger", MaterialMDF, "18", "10")
	bad.WidthMM = 50
	_, err = s.CreatePanel(ctx, bad)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.CreatePanel(ctx, panelInput("X", "X", "Egger", MaterialMDF, "18", "-1"))
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateAndDeactivatePanel(t *testing.T) {
	s := NewStore(dbtest.Open(t))
	ctx := context.Background()
	panels, _ := seedCatalog(t, s)

	in := panelInput("MDF-19", "MDF Hydrofuge 19mm", "Kronospan", MaterialMDF, "19", "21.90")
	in.GrainDirection = true
	in.ColorCode = "#d8cfc0"
	updated, err := s.UpdatePanel(ctx, panels[2].ID, in)
	require.NoError(t, err)
	assert.Equal(t, "MDF Hydrofuge 19mm", updated.Name)
	assert.True(t, updated.PricePerM2.Equal(dec("21.9")))
	assert.True(t, updated.GrainDirection)
	assert.Equal(t, "#d8cfc0", updated.ColorCode)

	_, err = s.UpdatePanel(ctx, panels[2].ID, panelInput("MDF-19", "X", "Y", MaterialMDF, "19", "1").withRef("MEL-BLANC-18"))
	require.ErrorIs(t, err, ErrDuplicateRef)

	_, err = s.UpdatePanel(ctx, "missing", in.withRef("NEW-REF"))
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeactivatePanel(ctx, panels[2].ID))
	got, err := s.GetPanel(ctx, panels[2].ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	_, err = s.PanelInfo(ctx, panels[2].ID)
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, s.DeactivatePanel(ctx, "missing"), ErrNotFound)
}

func (in PanelInput) withRef(ref string) PanelInput {
	in.Reference = ref
	return in
}

func TestSuppliersAndThicknesses(t *testing.T) {
	s := NewStore(dbtest.Open(t))
	ctx := context.Background()
	panels, _ := seedCatalog(t, s)
	require.NoError(t, s.DeactivatePanel(ctx, panels[2].ID))

	suppliers, err := s.Suppliers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Egger", "Polyrey"}, suppliers)

	thicknesses, err := s.Thicknesses(ctx)
	require.NoError(t, err)
	require.Len(t, thicknesses, 2)
	assert.True(t, thicknesses[0].Equal(dec("8")))
	assert.True(t, thicknesses[1].Equal(dec("18")))
}

func TestLinkEdgeAndCompatibleEdges(t *testing.T) {
	s := NewStore(dbtest.Open(t))
	ctx := context.Background()
	panels, edges := seedCatalog(t, s)

	require.NoError(t, s.LinkEdge(ctx, panels[0].ID, edges[0].ID, false))
	require.NoError(t, s.LinkEdge(ctx, panels[0].ID, edges[2].ID, false))
	// Upsert flips the flag instead of failing on the existing pair.
	require.NoError(t, s.LinkEdge(ctx, panels[0].ID, edges[0].ID, true))

	got, err := s.GetPanel(ctx, panels[0].ID)
	require.NoError(t, err)
	require.Len(t, got.CompatibleEdges, 2)
	assert.Equal(t, edges[0].ID, got.CompatibleEdges[0].ID)
	assert.True(t, got.CompatibleEdges[0].IsDefault)
	assert.False(t, got.CompatibleEdges[1].IsDefault)

	linked, err := s.ListEdges(ctx, EdgeFilter{PanelID: panels[0].ID, Active: boolPtr(true)})
	require.NoError(t, err)
	assert.Len(t, linked, 2)

	require.ErrorIs(t, s.LinkEdge(ctx, "missing", edges[0].ID, false), ErrNotFound)
	require.ErrorIs(t, s.LinkEdge(ctx, panels[0].ID, "missing", false), ErrNotFound)
}

func TestListEdgesAndMaterials(t *testing.T) {
	s := NewStore(dbtest.Open(t))
	ctx := context.Background()
	_, edges := seedCatalog(t, s)

	abs, err := s.ListEdges(ctx, EdgeFilter{Material: EdgeABS, Active: boolPtr(true)})
	require.NoError(t, err)
	assert.Len(t, abs, 2)

	search, err := s.ListEdges(ctx, EdgeFilter{Search: "laser"})
	require.NoError(t, err)
	require.Len(t, search, 1)
	assert.Equal(t, EdgeABSLaser, search[0].Material)

	materials, err := s.EdgeMaterials(ctx)
	require.NoError(t, err)
	assert.Equal(t, []EdgeMaterial{EdgeABS, EdgeABSLaser}, materials)

	require.NoError(t, s.DeactivateEdge(ctx, edges[2].ID))
	materials, err = s.EdgeMaterials(ctx)
	require.NoError(t, err)
	assert.Equal(t, []EdgeMaterial{EdgeABS}, materials)
}

func TestUpdateEdge(t *testing.T) {
	s := NewStore(dbtest.Open(t))
	ctx := context.Background()
	_, edges := seedCatalog(t, s)

	in := edgeInput("ABS-BLANC-23", "ABS Blanc 23x2", EdgeABS, "0.95")
	in.ThicknessMM = dec("2")
	updated, err := s.UpdateEdge(ctx, edges[0].ID, in)
	require.NoError(t, err)
	assert.True(t, updated.PricePerMeter.Equal(dec("0.95")))
	assert.True(t, updated.ThicknessMM.Equal(dec("2")))

	in.WidthMM = dec("150")
	_, err = s.UpdateEdge(ctx, edges[0].ID, in)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestEngineLookups(t *testing.T) {
	s := NewStore(dbtest.Open(t))
	ctx := context.Background()
	panels, edges := seedCatalog(t, s)
	require.NoError(t, s.DeactivateEdge(ctx, edges[1].ID))

	info, err := s.PanelInfo(ctx, panels[0].ID)
	require.NoError(t, err)
	assert.True(t, info.PricePerM2.Equal(dec("25.5")))
	assert.True(t, info.ThicknessMM.Equal(dec("18")))

	_, err = s.PanelInfo(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	infos, err := s.EdgeInfos(ctx, []string{edges[0].ID, edges[1].ID, edges[2].ID, "missing"})
	require.NoError(t, err)
	require.Len(t, infos, 2, "inactive and unknown edges are absent")
	assert.False(t, infos[edges[0].ID].Laser)
	assert.True(t, infos[edges[2].ID].Laser)
	assert.True(t, infos[edges[2].ID].PricePerMeter.Equal(dec("1.5")))

	empty, err := s.EdgeInfos(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
