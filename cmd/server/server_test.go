package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Simplici0/panelpro/internal/catalog"
	"github.com/Simplici0/panelpro/internal/config"
	"github.com/Simplici0/panelpro/internal/db/dbtest"
	"github.com/Simplici0/panelpro/internal/orders"
	"github.com/Simplici0/panelpro/internal/pricing"
	"github.com/Simplici0/panelpro/internal/rates"
	"github.com/Simplici0/panelpro/internal/seed"
)

const (
	testAdminEmail    = "admin@panelpro.fr"
	testAdminPassword = "s3cret-pass"
)

type testServer struct {
	*server
	handler http.Handler
	panelID string
	edgeID  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	database := dbtest.Open(t)
	ctx := context.Background()
	_, err := seed.Run(ctx, database, seed.Config{AdminEmail: testAdminEmail, AdminPassword: testAdminPassword})
	require.NoError(t, err)

	cfg := config.Config{SessionSecret: "test-secret", TaxPercent: decimal.NewFromInt(20)}
	srv := newServer(database, zap.NewNop(), cfg)

	panels, _, err := srv.catalog.ListPanels(ctx, catalog.PanelFilter{Search: "MEL-BLANC-18"})
	require.NoError(t, err)
	require.Len(t, panels, 1)
	edges, err := srv.catalog.ListEdges(ctx, catalog.EdgeFilter{Search: "ABS-BLANC-23"})
	require.NoError(t, err)
	require.NotEmpty(t, edges)

	return &testServer{server: srv, handler: srv.routes(), panelID: panels[0].ID, edgeID: edges[0].ID}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) login(t *testing.T) *http.Cookie {
	t.Helper()

	rec := ts.do(t, http.MethodPost, "/login", loginRequest{Email: "Admin@PanelPro.fr", Password: testAdminPassword})
	require.Equal(t, http.StatusNoContent, rec.Code)
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func (ts *testServer) part(ref string) pricing.Part {
	p := pricing.NewPart(ref)
	p.PanelID = ts.panelID
	p.Length = 1000
	p.Width = 500
	return p
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestQuoteEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/quote", ts.part("A"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	b := decodeBody[pricing.Breakdown](t, rec)
	assert.True(t, b.Panel.Equal(decimal.RequireFromString("12.75")))
	assert.True(t, b.Total.Equal(decimal.RequireFromString("17.75")), "total %s", b.Total)

	incomplete := pricing.NewPart("B")
	rec = ts.do(t, http.MethodPost, "/api/quote", incomplete)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[pricing.Breakdown](t, rec).IsZero())

	ghost := ts.part("C")
	ghost.PanelID = "missing"
	rec = ts.do(t, http.MethodPost, "/api/quote", ghost)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	dangling := ts.part("D")
	dangling.Edges[0].EdgeID = "missing"
	rec = ts.do(t, http.MethodPost, "/api/quote", dangling)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	doubled := ts.part("E")
	doubled.Edges = []pricing.EdgeSelection{{Position: "front"}, {Position: pricing.SideTop}, {Position: pricing.SideTop}}
	rec = ts.do(t, http.MethodPost, "/api/quote", doubled)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/quote", "not a part")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidateEndpoint(t *testing.T) {
	ts := newTestServer(t)

	p := pricing.NewPart("A")
	rec := ts.do(t, http.MethodPost, "/api/parts/validate?step=1", p)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[validateResponse](t, rec).Valid)

	rec = ts.do(t, http.MethodPost, "/api/parts/validate?step=2", p)
	resp := decodeBody[validateResponse](t, rec)
	assert.False(t, resp.Valid)
	assert.Equal(t, "panelId", resp.Field)
	assert.Equal(t, int(pricing.StepPanel), resp.IncompleteStep)

	rec = ts.do(t, http.MethodPost, "/api/parts/validate", ts.part("A"))
	assert.True(t, decodeBody[validateResponse](t, rec).Valid)

	rec = ts.do(t, http.MethodPost, "/api/parts/validate?step=x", p)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDuplicateEndpoint(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/api/parts/duplicate", ts.part("A"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "A-copie", decodeBody[pricing.Part](t, rec).Reference)
}

func (ts *testServer) orderInput(price string) orders.CreateInput {
	return orders.CreateInput{
		Customer:       orders.Customer{Name: "Atelier Martin", Email: "client@example.com"},
		DeliveryOption: orders.DeliveryStandard,
		Parts:          []orders.PartInput{{Part: ts.part("A"), CalculatedPrice: decimal.RequireFromString(price)}},
	}
}

func TestCreateOrderFlow(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/orders", ts.orderInput("17.00"))
	require.Equal(t, http.StatusConflict, rec.Code)
	mismatch := decodeBody[priceMismatchBody](t, rec)
	assert.Equal(t, "A", mismatch.Reference)
	assert.True(t, mismatch.ServerBreakdown.Total.Equal(decimal.RequireFromString("17.75")))

	rec = ts.do(t, http.MethodPost, "/api/orders", ts.orderInput("17.75"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[orders.Order](t, rec)
	assert.Equal(t, orders.StatusPending, created.Status)
	assert.True(t, created.Total.Equal(decimal.RequireFromString("63.30")), "total %s", created.Total)

	rec = ts.do(t, http.MethodGet, "/api/orders/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/orders/"+created.ID+"?email=CLIENT@example.com", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[orders.Order](t, rec)
	require.Len(t, got.Parts, 1)
	assert.True(t, got.Parts[0].PriceBreakdown.Total.Equal(decimal.RequireFromString("17.75")))

	rec = ts.do(t, http.MethodPost, "/api/orders/"+created.ID+"/cancel", cancelRequest{Email: "other@example.com"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/orders/"+created.ID+"/cancel", cancelRequest{Email: "client@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, orders.StatusCancelled, decodeBody[orders.Order](t, rec).Status)

	rec = ts.do(t, http.MethodPost, "/api/orders/"+created.ID+"/cancel", cancelRequest{Email: "client@example.com"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	bad := ts.orderInput("17.75")
	bad.Parts = nil
	rec = ts.do(t, http.MethodPost, "/api/orders", bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminRoutesRequireSession(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/admin/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/admin/orders", nil, &http.Cookie{Name: sessionCookieName, Value: "forged.value"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPost, "/login", loginRequest{Email: testAdminEmail, Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	cookie := ts.login(t)
	rec = ts.do(t, http.MethodGet, "/api/admin/orders", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, decodeBody[listBody[orders.Order]](t, rec).Total)
}

func TestAdminRateUpdatesAreAttributed(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.login(t)

	rec := ts.do(t, http.MethodPut, "/api/admin/rates/"+pricing.KeyCutMinimum,
		rates.Change{Value: decimal.NewFromInt(8), Reason: "hausse"}, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPut, "/api/admin/rates", bulkUpdateRequest{Updates: []rates.Change{
		{Key: pricing.KeyDrillHole, Value: decimal.RequireFromString("0.20")},
		{Key: "UNKNOWN", Value: decimal.NewFromInt(1)},
	}}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{pricing.KeyDrillHole}, decodeBody[bulkUpdateResponse](t, rec).Updated)

	rec = ts.do(t, http.MethodGet, "/api/admin/rates/history?key="+pricing.KeyCutMinimum, nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decodeBody[[]rates.HistoryEntry](t, rec)
	require.Len(t, history, 1)
	assert.Equal(t, testAdminEmail, history[0].ChangedBy)
	assert.Equal(t, "hausse", history[0].Reason)

	rec = ts.do(t, http.MethodPut, "/api/admin/rates/"+pricing.KeyCutMinimum,
		rates.Change{Value: decimal.NewFromInt(-1)}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/rates/"+pricing.KeyCutMinimum, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[rates.Rate](t, rec).Value.Equal(decimal.NewFromInt(8)))

	rec = ts.do(t, http.MethodGet, "/api/rates/NOPE", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminOrderWorkflow(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.login(t)

	rec := ts.do(t, http.MethodPost, "/api/orders", ts.orderInput("17.75"))
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[orders.Order](t, rec)

	rec = ts.do(t, http.MethodPut, "/api/admin/rates/"+pricing.KeyCutMinimum, rates.Change{Value: decimal.NewFromInt(6)}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/admin/orders/"+created.ID+"/reprice", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	repriced := decodeBody[orders.Order](t, rec)
	assert.True(t, repriced.Subtotal.Equal(decimal.RequireFromString("18.75")), "subtotal %s", repriced.Subtotal)

	rec = ts.do(t, http.MethodPut, "/api/admin/orders/"+created.ID+"/status", statusRequest{Status: orders.StatusConfirmed}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, decodeBody[orders.Order](t, rec).ConfirmedAt)

	rec = ts.do(t, http.MethodPut, "/api/admin/orders/"+created.ID+"/status", statusRequest{Status: orders.StatusDelivered}, cookie)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/admin/orders/"+created.ID+"/reprice", nil, cookie)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/orders/"+created.ID, nil, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/admin/orders/stats", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeBody[orders.Stats](t, rec)
	assert.Equal(t, 1, st.TotalOrders)
	assert.True(t, st.TotalRevenue.Equal(repriced.Total))

	rec = ts.do(t, http.MethodGet, "/api/admin/orders?status=confirmed", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeBody[listBody[orders.Order]](t, rec).Total)

	rec = ts.do(t, http.MethodGet, "/api/admin/orders?status=lost", nil, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalogEndpoints(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.login(t)

	rec := ts.do(t, http.MethodGet, "/api/panels?material=MELAMINE", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decodeBody[listBody[catalog.Panel]](t, rec).Total)

	rec = ts.do(t, http.MethodGet, "/api/panels?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/panels/"+ts.panelID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[catalog.Panel](t, rec).CompatibleEdges, 2)

	rec = ts.do(t, http.MethodGet, "/api/panels/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/panels/suppliers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decodeBody[[]string](t, rec), "Egger")

	rec = ts.do(t, http.MethodGet, "/api/edges?panelId="+ts.panelID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decodeBody[listBody[catalog.CompatibleEdge]](t, rec).Total)

	in := catalog.PanelInput{
		Reference:   "CP-15",
		Name:        "Contreplaqué 15mm",
		Supplier:    "Garnica",
		Material:    catalog.MaterialPlywood,
		ThicknessMM: decimal.NewFromInt(15),
		LengthMM:    2500,
		WidthMM:     1220,
		PricePerM2:  decimal.NewFromInt(28),
	}
	rec = ts.do(t, http.MethodPost, "/api/admin/panels", in)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/admin/panels", in, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[catalog.Panel](t, rec)

	rec = ts.do(t, http.MethodPost, "/api/admin/panels", in, cookie)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/admin/panels/"+created.ID+"/edges", linkEdgeRequest{EdgeID: ts.edgeID, IsDefault: true}, cookie)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/admin/panels/"+created.ID, nil, cookie)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	p := ts.part("A")
	p.PanelID = created.ID
	rec = ts.do(t, http.MethodPost, "/api/quote", p)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
