package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appcatalog "github.com/dentalclinic/backend/internal/application/catalog"
	appfinance "github.com/dentalclinic/backend/internal/application/finance"
	apphistory "github.com/dentalclinic/backend/internal/application/history"
	apppartner "github.com/dentalclinic/backend/internal/application/partner"
	appquote "github.com/dentalclinic/backend/internal/application/quote"
	appscheduling "github.com/dentalclinic/backend/internal/application/scheduling"
	"github.com/dentalclinic/backend/internal/domain/printing"
	"github.com/dentalclinic/backend/internal/interfaces/http/dto"
	"github.com/dentalclinic/backend/internal/interfaces/http/middleware"
	"github.com/dentalclinic/backend/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type stubRenderer struct{}

func (stubRenderer) RenderBudget(_ context.Context, doc *printing.BudgetDocument) ([]byte, error) {
	return []byte("%PDF-1.4 " + doc.ClientName), nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping() error { return p.err }

func newServer(t *testing.T, quoteOpts ...appquote.Option) *gin.Engine {
	t.Helper()
	scope := testutil.NewScope(t)
	log := zap.NewNop()
	clock := testutil.FixedClock(testNow)

	payments := appfinance.NewPaymentService(scope, log, appfinance.WithClock(clock))
	history := apphistory.NewHistoryService(scope, log, apphistory.WithClock(clock))
	quoteOpts = append([]appquote.Option{appquote.WithClock(clock), appquote.WithLocation(time.UTC)}, quoteOpts...)

	engine := gin.New()
	api := engine.Group("/api/v1")
	for _, r := range []interface{ RegisterRoutes(*gin.RouterGroup) }{
		NewClientHandler(apppartner.NewClientService(scope, log), payments, history),
		NewDentistHandler(appcatalog.NewDentistService(scope, log)),
		NewTreatmentHandler(appcatalog.NewTreatmentService(scope, log)),
		NewAppointmentHandler(appscheduling.NewAppointmentService(scope, payments, nil, log,
			appscheduling.WithClock(clock), appscheduling.WithLocation(time.UTC))),
		NewQuoteHandler(appquote.NewQuoteService(scope, payments, log, quoteOpts...)),
		NewFinanceHandler(payments),
		NewHistoryHandler(history),
	} {
		r.RegisterRoutes(api)
	}
	return engine
}

func call(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

// envelope decodes the response and re-decodes Data into out when given
func envelope(t *testing.T, w *httptest.ResponseRecorder, out any) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	if out != nil {
		raw, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, out))
	}
	return resp
}

func createClient(t *testing.T, engine *gin.Engine, name, cedula string) apppartner.ClientResponse {
	t.Helper()
	w := call(t, engine, http.MethodPost, "/api/v1/clients", map[string]string{"name": name, "cedula": cedula})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var c apppartner.ClientResponse
	envelope(t, w, &c)
	return c
}

func createTreatment(t *testing.T, engine *gin.Engine, name, price string) appcatalog.TreatmentResponse {
	t.Helper()
	w := call(t, engine, http.MethodPost, "/api/v1/treatments", map[string]any{"name": name, "price": price})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var tr appcatalog.TreatmentResponse
	envelope(t, w, &tr)
	return tr
}

func TestClientEndpoints(t *testing.T) {
	engine := newServer(t)
	client := createClient(t, engine, "María González", "V-12345678")

	t.Run("duplicate cedula", func(t *testing.T) {
		w := call(t, engine, http.MethodPost, "/api/v1/clients", map[string]string{"name": "Otra Persona", "cedula": "V-12345678"})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, dto.ErrCodeAlreadyExists, envelope(t, w, nil).Error.Code)
	})

	t.Run("validation details", func(t *testing.T) {
		w := call(t, engine, http.MethodPost, "/api/v1/clients", map[string]string{"name": "Al"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := envelope(t, w, nil)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.NotEmpty(t, resp.Error.Details)
	})

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/clients", bytes.NewBufferString("{"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidJSON, envelope(t, w, nil).Error.Code)
	})

	t.Run("lookup by id and cedula", func(t *testing.T) {
		w := call(t, engine, http.MethodGet, "/api/v1/clients/"+client.ID.String(), nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = call(t, engine, http.MethodGet, "/api/v1/clients/cedula/V-12345678", nil)
		var got apppartner.ClientResponse
		envelope(t, w, &got)
		assert.Equal(t, client.ID, got.ID)
	})

	t.Run("bad uuid and missing client", func(t *testing.T) {
		w := call(t, engine, http.MethodGet, "/api/v1/clients/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = call(t, engine, http.MethodGet, "/api/v1/clients/00000000-0000-0000-0000-000000000001", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, dto.ErrCodeNotFound, envelope(t, w, nil).Error.Code)
	})

	t.Run("list carries paging meta", func(t *testing.T) {
		createClient(t, engine, "José Pérez", "V-87654321")
		w := call(t, engine, http.MethodGet, "/api/v1/clients?limit=1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		resp := envelope(t, w, nil)
		require.NotNil(t, resp.Meta)
		assert.EqualValues(t, 2, resp.Meta.Total)
		assert.Equal(t, 1, resp.Meta.Limit)
	})

	t.Run("search requires a term", func(t *testing.T) {
		w := call(t, engine, http.MethodGet, "/api/v1/clients/search", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = call(t, engine, http.MethodGet, "/api/v1/clients/search?q=gonz", nil)
		var found []apppartner.ClientResponse
		envelope(t, w, &found)
		assert.Len(t, found, 1)
	})
}

func TestAppointmentFlow(t *testing.T) {
	engine := newServer(t)
	client := createClient(t, engine, "María González", "V-12345678")
	cleaning := createTreatment(t, engine, "Limpieza", "40")

	book := map[string]any{
		"client_id": client.ID,
		"date":      "2025-03-11",
		"time":      "09:00",
		"lines":     []map[string]any{{"treatment_id": cleaning.ID, "quantity": 1}},
	}
	w := call(t, engine, http.MethodPost, "/api/v1/appointments", book)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var appt appscheduling.AppointmentResponse
	envelope(t, w, &appt)
	assert.Equal(t, "pending", appt.Status)

	w = call(t, engine, http.MethodPost, "/api/v1/appointments", book)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, dto.ErrCodeConflictingBooking, envelope(t, w, nil).Error.Code)

	w = call(t, engine, http.MethodGet, "/api/v1/appointments/slots?date=2025-03-11", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var slots []appscheduling.SlotResponse
	envelope(t, w, &slots)
	for _, s := range slots {
		assert.NotEqual(t, "09:00", s.Time, "booked slot must not be offered")
	}

	w = call(t, engine, http.MethodGet, "/api/v1/appointments/slots", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(t, engine, http.MethodGet, "/api/v1/appointments?status=pending", nil)
	resp := envelope(t, w, nil)
	require.NotNil(t, resp.Meta)
	assert.EqualValues(t, 1, resp.Meta.Total)

	w = call(t, engine, http.MethodGet, "/api/v1/appointments?status=unknown", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(t, engine, http.MethodDelete, "/api/v1/treatments/"+cleaning.ID.String(), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, dto.ErrCodeReferentialInUse, envelope(t, w, nil).Error.Code)

	w = call(t, engine, http.MethodPatch, "/api/v1/appointments/"+appt.ID.String()+"/status", map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = call(t, engine, http.MethodPatch, "/api/v1/appointments/"+appt.ID.String()+"/status", map[string]string{"status": "pending"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidState, envelope(t, w, nil).Error.Code)

	w = call(t, engine, http.MethodGet, "/api/v1/clients/"+client.ID.String()+"/treatments", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestPaymentFlow(t *testing.T) {
	engine := newServer(t)
	client := createClient(t, engine, "María González", "V-12345678")
	base := "/api/v1/clients/" + client.ID.String()

	w := call(t, engine, http.MethodPost, "/api/v1/debts", map[string]any{"client_id": client.ID, "amount": "100"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var debt appfinance.DebtResponse
	envelope(t, w, &debt)

	w = call(t, engine, http.MethodPost, "/api/v1/payments", map[string]any{"client_id": client.ID, "amount": "130", "method": "cash"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var result appfinance.PaymentResult
	envelope(t, w, &result)
	assert.True(t, result.Applied.Equal(testutil.Money("100")), result.Applied.String())
	assert.True(t, result.Credited.Equal(testutil.Money("30")), result.Credited.String())

	w = call(t, engine, http.MethodGet, base+"/credit", nil)
	var credit struct {
		Amount decimal.Decimal `json:"amount"`
	}
	envelope(t, w, &credit)
	assert.True(t, credit.Amount.Equal(testutil.Money("30")))

	w = call(t, engine, http.MethodGet, base+"/debts?pending=true", nil)
	var pending []appfinance.DebtResponse
	envelope(t, w, &pending)
	assert.Empty(t, pending)

	w = call(t, engine, http.MethodGet, "/api/v1/payments/"+result.Payment.ID.String()+"/allocations", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = call(t, engine, http.MethodDelete, "/api/v1/payments/"+result.Payment.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = call(t, engine, http.MethodGet, base+"/summary", nil)
	var summary appfinance.ClientSummary
	envelope(t, w, &summary)
	assert.True(t, summary.TotalPendingDebt.Equal(testutil.Money("100")))
	assert.True(t, summary.ClientCreditBalance.IsZero())

	w = call(t, engine, http.MethodDelete, "/api/v1/debts/"+debt.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = call(t, engine, http.MethodGet, "/api/v1/debts/"+debt.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQuotePDF(t *testing.T) {
	t.Run("printing disabled", func(t *testing.T) {
		engine := newServer(t)
		client := createClient(t, engine, "María González", "V-12345678")
		tr := createTreatment(t, engine, "Corona", "250")
		w := call(t, engine, http.MethodPost, "/api/v1/quotes", map[string]any{
			"client_id": client.ID,
			"lines":     []map[string]any{{"treatment_id": tr.ID, "quantity": 1}},
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var q appquote.QuoteResponse
		envelope(t, w, &q)

		w = call(t, engine, http.MethodGet, "/api/v1/quotes/"+q.ID.String()+"/pdf", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("renders attachment", func(t *testing.T) {
		engine := newServer(t, appquote.WithRenderer(stubRenderer{}))
		client := createClient(t, engine, "María González", "V-12345678")
		tr := createTreatment(t, engine, "Corona", "250")
		w := call(t, engine, http.MethodPost, "/api/v1/quotes", map[string]any{
			"client_id": client.ID,
			"lines":     []map[string]any{{"treatment_id": tr.ID, "quantity": 2}},
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var q appquote.QuoteResponse
		envelope(t, w, &q)

		w = call(t, engine, http.MethodGet, "/api/v1/quotes/"+q.ID.String()+"/pdf", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment; filename=presupuesto-20250310-")
		assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

		w = call(t, engine, http.MethodGet, "/api/v1/quotes?status=pending", nil)
		resp := envelope(t, w, nil)
		require.NotNil(t, resp.Meta)
		assert.EqualValues(t, 1, resp.Meta.Total)
	})
}

func TestMedicalRecords(t *testing.T) {
	engine := newServer(t)
	client := createClient(t, engine, "María González", "V-12345678")

	w := call(t, engine, http.MethodPost, "/api/v1/medical-records", map[string]any{
		"client_id": client.ID,
		"diagnosis": "Caries en 36",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var rec apphistory.MedicalRecordResponse
	envelope(t, w, &rec)

	w = call(t, engine, http.MethodGet, "/api/v1/clients/"+client.ID.String()+"/medical-records", nil)
	var recs []apphistory.MedicalRecordResponse
	envelope(t, w, &recs)
	require.Len(t, recs, 1)
	assert.Equal(t, "Caries en 36", recs[0].Diagnosis)

	w = call(t, engine, http.MethodDelete, "/api/v1/medical-records/"+rec.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = call(t, engine, http.MethodGet, "/api/v1/medical-records/"+rec.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSystemHandler(t *testing.T) {
	healthy := NewSystemHandler(stubPinger{}, "clinic", "test")
	down := NewSystemHandler(stubPinger{err: errors.New("connection refused")}, "clinic", "test")

	engine := gin.New()
	engine.GET("/health", healthy.Health)
	engine.GET("/health-down", down.Health)
	healthy.RegisterRoutes(engine.Group("/api/v1"))

	w := call(t, engine, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = call(t, engine, http.MethodGet, "/health-down", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	w = call(t, engine, http.MethodGet, "/api/v1/system/info", nil)
	var info map[string]string
	envelope(t, w, &info)
	assert.Equal(t, "clinic", info["name"])
}

func TestClientImport(t *testing.T) {
	engine := newServer(t)
	createClient(t, engine, "María González", "V-12345678")

	t.Run("multipart upload", func(t *testing.T) {
		var buf bytes.Buffer
		form := multipart.NewWriter(&buf)
		part, err := form.CreateFormFile("file", "pacientes.csv")
		require.NoError(t, err)
		_, err = part.Write([]byte("Nombre;Cédula\nAna Gómez;V-1\nMaría G;V-12345678\n"))
		require.NoError(t, err)
		require.NoError(t, form.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/clients/import", &buf)
		req.Header.Set("Content-Type", form.FormDataContentType())
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var res apppartner.ImportResult
		envelope(t, w, &res)
		assert.Equal(t, 1, res.Created)
		assert.Equal(t, 1, res.Skipped)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, 3, res.Errors[0].Row)

		w = call(t, engine, http.MethodGet, "/api/v1/clients/cedula/V-1", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("raw body dry run", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/clients/import?dry_run=true",
			bytes.NewBufferString("name,cedula\nLuis Pérez,V-2\n"))
		req.Header.Set("Content-Type", "text/csv")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var res apppartner.ImportResult
		envelope(t, w, &res)
		assert.True(t, res.DryRun)
		assert.Equal(t, 1, res.Created)

		w = call(t, engine, http.MethodGet, "/api/v1/clients/cedula/V-2", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("missing columns", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/clients/import", bytes.NewBufferString("nombre\nAna\n"))
		req.Header.Set("Content-Type", "text/csv")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, envelope(t, w, nil).Error.Code)
	})

	t.Run("multipart without file", func(t *testing.T) {
		var buf bytes.Buffer
		form := multipart.NewWriter(&buf)
		require.NoError(t, form.WriteField("other", "x"))
		require.NoError(t, form.Close())
		req := httptest.NewRequest(http.MethodPost, "/api/v1/clients/import", &buf)
		req.Header.Set("Content-Type", form.FormDataContentType())
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
