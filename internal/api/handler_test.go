package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/irocky-stack/rjbtranz/internal/api/middleware"
	"github.com/irocky-stack/rjbtranz/internal/config"
	"github.com/irocky-stack/rjbtranz/internal/fees"
	"github.com/irocky-stack/rjbtranz/internal/identifier"
	"github.com/irocky-stack/rjbtranz/internal/idempotency"
	"github.com/irocky-stack/rjbtranz/internal/lifecycle"
	"github.com/irocky-stack/rjbtranz/internal/models"
	"github.com/irocky-stack/rjbtranz/internal/notify"
	"github.com/irocky-stack/rjbtranz/internal/rates"
	"github.com/irocky-stack/rjbtranz/internal/receipt"
	"github.com/irocky-stack/rjbtranz/internal/store"
	"github.com/irocky-stack/rjbtranz/internal/wizard"
)

type apiFixture struct {
	router chi.Router
	store  *store.MemoryStore
}

func setupAPI(t *testing.T) *apiFixture {
	t.Helper()

	middleware.SetJWTSecret("test-secret-key-at-least-32-chars!!")
	middleware.SetJWTValidation("", "")

	cfg := &config.Config{
		ReferenceCurrency:  "USD",
		ViewedCountry:      "Ghana",
		FeeRate:            0.05,
		RateMarkup:         0.05,
		BrandPrefix:        "RJB",
		PendingWindow:      72 * time.Hour,
		CompleteStagger:    0,
		AutoPrintReceipts:  true,
		PublicRateLimitRPS: 100,
		AuthRateLimitRPS:   100,
	}

	table := rates.NewTable()
	table.Replace([]models.ExchangeRate{
		{Pair: "USD/GHS", Rate: 12.0},
		{Pair: "USD/EUR", Rate: 0.85},
	})
	resolver := rates.NewResolver(table, cfg.ReferenceCurrency, cfg.RateMarkup)

	memStore := store.NewMemoryStore()
	notifier := notify.NewLogNotifier()
	printer := receipt.NewTextPrinter(cfg.BrandPrefix).WithSink(func(string) {})
	lc := lifecycle.NewService(memStore, notifier, printer).
		WithAutoPrint(cfg.AutoPrintReceipts).
		WithStagger(cfg.CompleteStagger)

	wizardCfg := wizard.Config{
		ReferenceCurrency: cfg.ReferenceCurrency,
		ViewedCountry:     cfg.ViewedCountry,
		FeeRate:           cfg.FeeRate,
		PendingWindow:     cfg.PendingWindow,
	}
	feeCalc := fees.NewCalculator(cfg.ReferenceCurrency)
	ids := identifier.NewGenerator(cfg.BrandPrefix, memStore)
	sessions := wizard.NewManager(func() *wizard.Wizard {
		return wizard.New(wizardCfg, memStore, resolver, feeCalc, ids, notifier)
	})

	idemStore := idempotency.NewStore(nil, time.Hour)
	router := NewRouter(cfg, zap.NewNop(), nil, nil, idemStore, memStore, table, resolver, lc, sessions)
	return &apiFixture{router: router.Routes(), store: memStore}
}

func authToken(t *testing.T) string {
	t.Helper()
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": uuid.NewString(),
		"role":    "operator",
		"iat":     now.Unix(),
		"exp":     now.Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(middleware.JWTSecret())
	require.NoError(t, err)
	return signed
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

func TestRFC7807ProblemDetails(t *testing.T) {
	f := setupAPI(t)

	w := f.do(t, "GET", "/v1/transactions", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Header().Get("Content-Type"), "application/problem+json")

	body := decodeJSON(t, w)
	assert.NotEmpty(t, body["type"])
	assert.Equal(t, float64(http.StatusUnauthorized), body["status"])
	assert.NotEmpty(t, body["title"])
	assert.NotEmpty(t, body["detail"])
	assert.Equal(t, "/v1/transactions", body["instance"])
	assert.NotEmpty(t, body["request_id"])
}

func TestPublicEndpoints(t *testing.T) {
	f := setupAPI(t)

	cases := []struct {
		name string
		path string
	}{
		{name: "live", path: "/health/live"},
		{name: "ready", path: "/health/ready"},
		{name: "metrics", path: "/metrics"},
		{name: "openapi", path: "/openapi.yaml"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			w := f.do(t, "GET", tc.path, "", nil)
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestRatesEndpoints(t *testing.T) {
	f := setupAPI(t)
	token := authToken(t)

	w := f.do(t, "GET", "/v1/rates", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON(t, w)
	assert.Len(t, body["rates"], 2)

	w = f.do(t, "GET", "/v1/rates/resolve?from=USD&to=GHS", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeJSON(t, w)
	assert.InDelta(t, 12.0, body["rate"].(float64), 1e-9)
	assert.InDelta(t, 12.6, body["offered_rate"].(float64), 1e-9)

	w = f.do(t, "GET", "/v1/rates/resolve?from=USD", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, "GET", "/v1/countries", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func openSession(t *testing.T, f *apiFixture, token string) string {
	t.Helper()
	w := f.do(t, "POST", "/v1/wizard", token, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	body := decodeJSON(t, w)
	id, _ := body["session_id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestWizardSendFlowOverHTTP(t *testing.T) {
	f := setupAPI(t)
	token := authToken(t)
	session := openSession(t, f, token)
	base := "/v1/wizard/" + session

	w := f.do(t, "POST", base+"/send", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	form := map[string]any{
		"client_name":  "Akosua Mensah",
		"phone_number": "+233245550182",
		"amount":       "1000",
	}
	w = f.do(t, "PUT", base+"/form", token, form)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON(t, w)
	quote := body["quote"].(map[string]any)
	assert.InDelta(t, 12.6, quote["offered_rate"].(float64), 1e-9)
	assert.InDelta(t, 50.0, quote["fee"].(float64), 1e-9)

	w = f.do(t, "POST", base+"/save-continue", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeJSON(t, w)
	tx := body["transaction"].(map[string]any)
	txID := tx["id"].(string)
	assert.Equal(t, "PENDING", tx["status"])

	w = f.do(t, "POST", base+"/receiver", token, map[string]any{
		"full_name": "Kwame Boateng",
		"country":   "Ghana",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, "POST", base+"/confirm", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeJSON(t, w)
	tx = body["transaction"].(map[string]any)
	assert.Equal(t, "COMPLETED", tx["status"])
	assert.Equal(t, true, tx["receipt_printed"])

	// The completed transaction is visible on the console list.
	w = f.do(t, "GET", "/v1/transactions?status=COMPLETED", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, txID, list[0]["id"])

	w = f.do(t, "GET", "/v1/transactions/"+txID+"/receipt", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "RJB TRANZ")
	assert.Contains(t, w.Body.String(), "Akosua Mensah")
}

func TestWizardValidationOverHTTP(t *testing.T) {
	f := setupAPI(t)
	token := authToken(t)
	session := openSession(t, f, token)
	base := "/v1/wizard/" + session

	w := f.do(t, "POST", base+"/send", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Commit with an empty form.
	w = f.do(t, "POST", base+"/save", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// Confirm out of order.
	w = f.do(t, "POST", base+"/confirm", token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestWizardUnknownSession(t *testing.T) {
	f := setupAPI(t)
	token := authToken(t)

	w := f.do(t, "POST", "/v1/wizard/"+uuid.NewString()+"/send", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTransactionLifecycleOverHTTP(t *testing.T) {
	f := setupAPI(t)
	token := authToken(t)

	txID := createPendingTransaction(t, f, token, "Efua Owusu")

	// Pending -> Completed, auto-printing the receipt.
	w := f.do(t, "PATCH", "/v1/transactions/"+txID+"/status", token, map[string]string{"status": "COMPLETED"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON(t, w)
	assert.Equal(t, "COMPLETED", body["status"])

	// Terminal states reject further moves.
	w = f.do(t, "PATCH", "/v1/transactions/"+txID+"/status", token, map[string]string{"status": "FAILED"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, "PATCH", "/v1/transactions/"+uuid.NewString()+"/status", token, map[string]string{"status": "COMPLETED"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCompleteAllPendingOverHTTP(t *testing.T) {
	f := setupAPI(t)
	token := authToken(t)

	for i := 0; i < 3; i++ {
		createPendingTransaction(t, f, token, fmt.Sprintf("Client %d", i))
	}

	w := f.do(t, "POST", "/v1/transactions/complete-pending", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON(t, w)
	assert.Equal(t, float64(3), body["completed"])

	w = f.do(t, "GET", "/v1/transactions/summary", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeJSON(t, w)
	assert.Equal(t, float64(3), body["completed"])
	assert.Equal(t, float64(0), body["pending"])
}

func TestManualRateEditOverHTTP(t *testing.T) {
	f := setupAPI(t)
	token := authToken(t)
	txID := createPendingTransaction(t, f, token, "Yaw Darko")

	w := f.do(t, "PATCH", "/v1/transactions/"+txID+"/rate", token, map[string]any{"exchange_rate": 11.4})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON(t, w)
	assert.InDelta(t, 11.4, body["exchange_rate"].(float64), 1e-9)

	w = f.do(t, "PATCH", "/v1/transactions/"+txID+"/rate", token, map[string]any{"exchange_rate": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// createPendingTransaction drives a wizard session through a save-only
// commit and returns the created transaction ID.
func createPendingTransaction(t *testing.T, f *apiFixture, token, clientName string) string {
	t.Helper()
	session := openSession(t, f, token)
	base := "/v1/wizard/" + session

	w := f.do(t, "POST", base+"/send", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, "PUT", base+"/form", token, map[string]any{
		"client_name": clientName,
		"amount":      "500",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, "POST", base+"/save", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON(t, w)
	tx := body["transaction"].(map[string]any)
	return tx["id"].(string)
}
