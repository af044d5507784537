package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Checker-Finance/fuel-reserve/internal/config"
	"github.com/Checker-Finance/fuel-reserve/internal/reserve"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// --- Mock Service ---

type mockService struct {
	registry *reserve.Registry

	issueFn  func(ctx context.Context, pair string, volume decimal.Decimal) (reserve.IssueResult, error)
	retireFn func(ctx context.Context, pair string, volume decimal.Decimal) (reserve.RetireResult, error)
}

func newMockService(t *testing.T) *mockService {
	t.Helper()
	r := reserve.NewRegistry()
	_, err := r.Create("USD", d("1"), d("0.0001"), d("0"))
	require.NoError(t, err)
	return &mockService{registry: r}
}

func (m *mockService) CreateAccount(_ context.Context, seed config.SeedAccount) (*reserve.Account, error) {
	return m.registry.Create(seed.Pair, seed.SupplyFactor, seed.StartPrice, seed.ReserveBalance)
}

func (m *mockService) Quote(_ context.Context, pair string, side reserve.Side) (reserve.Tranche, error) {
	acc, err := m.registry.Get(pair)
	if err != nil {
		return reserve.Tranche{}, err
	}
	return acc.Quote(side)
}

func (m *mockService) Issue(ctx context.Context, pair string, volume decimal.Decimal) (reserve.IssueResult, error) {
	if m.issueFn != nil {
		return m.issueFn(ctx, pair, volume)
	}
	acc, err := m.registry.Get(pair)
	if err != nil {
		return reserve.IssueResult{}, err
	}
	return acc.Issue(volume)
}

func (m *mockService) Retire(ctx context.Context, pair string, volume decimal.Decimal) (reserve.RetireResult, error) {
	if m.retireFn != nil {
		return m.retireFn(ctx, pair, volume)
	}
	acc, err := m.registry.Get(pair)
	if err != nil {
		return reserve.RetireResult{}, err
	}
	return acc.Retire(volume)
}

func (m *mockService) UpdateSupply(_ context.Context, pair string, factor decimal.Decimal) error {
	acc, err := m.registry.Get(pair)
	if err != nil {
		return err
	}
	return acc.UpdateSupply(factor)
}

func (m *mockService) Summary(_ context.Context) reserve.Summary {
	return reserve.BuildSummary(m.registry.List())
}

func (m *mockService) Registry() *reserve.Registry { return m.registry }

// --- Test Helpers ---

func newTestApp(svc ReserveService) *fiber.App {
	app := fiber.New()
	handler := NewReserveHandler(zap.NewNop(), svc, nil, nil)
	RegisterRoutes(app, nil, nil, handler)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

// --- Tests ---

func TestQuoteHandler_Buy(t *testing.T) {
	app := newTestApp(newMockService(t))

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/accounts/USD/quote?side=buy", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got QuoteResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "USD", got.Pair)
	assert.True(t, got.Price.Equal(d("0.0001")))
	assert.True(t, got.Volume.Equal(d("1000000")))
}

func TestQuoteHandler_BadSide(t *testing.T) {
	app := newTestApp(newMockService(t))

	resp, _ := doJSON(t, app, http.MethodGet, "/api/v1/accounts/USD/quote?side=hold", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestQuoteHandler_UnknownPair(t *testing.T) {
	app := newTestApp(newMockService(t))

	resp, _ := doJSON(t, app, http.MethodGet, "/api/v1/accounts/GBP/quote?side=buy", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIssueHandler_Success(t *testing.T) {
	app := newTestApp(newMockService(t))

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/accounts/USD/issue", `{"volume": 1500000}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got reserve.IssueResult
	require.NoError(t, json.Unmarshal(body, &got))
	assert.True(t, got.Cost.Equal(d("150.5")), "cost = %s", got.Cost)
}

func TestIssueHandler_RejectsNonPositiveVolume(t *testing.T) {
	app := newTestApp(newMockService(t))

	for _, body := range []string{`{"volume": 0}`, `{"volume": -10}`, `{}`} {
		resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/accounts/USD/issue", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "body: %s", body)
	}
}

func TestIssueHandler_InsufficientLiquidity(t *testing.T) {
	svc := newMockService(t)
	svc.issueFn = func(context.Context, string, decimal.Decimal) (reserve.IssueResult, error) {
		return reserve.IssueResult{}, fmt.Errorf("ladder exhausted: %w", reserve.ErrInsufficientLiquidity)
	}
	app := newTestApp(svc)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/accounts/USD/issue", `{"volume": 1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestRetireHandler_InsufficientReserve(t *testing.T) {
	app := newTestApp(newMockService(t))

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/accounts/USD/retire", `{"volume": 2000000}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var got ErrorResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Contains(t, got.Error, "insufficient reserve")
}

func TestSupplyHandler(t *testing.T) {
	svc := newMockService(t)
	app := newTestApp(svc)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/accounts/USD/supply", `{"factor": 0.5}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	acc, err := svc.registry.Get("USD")
	require.NoError(t, err)
	assert.True(t, acc.SupplyFactor().Equal(d("0.5")))

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/accounts/USD/supply", `{"factor": 0}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateAccountHandler(t *testing.T) {
	app := newTestApp(newMockService(t))

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/accounts",
		`{"pair":"EUR","supplyFactor":"2","startPrice":"0.0002","reserveBalance":"10"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var got AccountResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "EUR", got.Pair)
	assert.True(t, got.ReserveBalance.Equal(d("10")))

	// Duplicate pair conflicts.
	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/accounts",
		`{"pair":"EUR","supplyFactor":"2","startPrice":"0.0002","reserveBalance":"10"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestLaddersHandler(t *testing.T) {
	app := newTestApp(newMockService(t))

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/accounts/USD/ladders", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got LaddersResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Len(t, got.Issuance, 5)
	assert.Len(t, got.Retirement, 5)
}

func TestSummaryHandler(t *testing.T) {
	app := newTestApp(newMockService(t))

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/summary", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got reserve.Summary
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got.Rows, 1)
	assert.Equal(t, "USD", got.Rows[0].Currency)
}

func TestOperationsHandler_NoHistory(t *testing.T) {
	app := newTestApp(newMockService(t))

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/accounts/USD/operations", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))
}

func TestHealthHandler_NoBackends(t *testing.T) {
	app := newTestApp(newMockService(t))

	resp, body := doJSON(t, app, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)
}
