package calculator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"pocket-calculator/internal/config"
	"pocket-calculator/internal/observability"
	"pocket-calculator/internal/testutil"
)

var (
	spanRecorder = tracetest.NewSpanRecorder()
	metricReader = sdkmetric.NewManualReader()
)

// The calculator tracer and meters bind to the global providers, so they are
// installed once for the whole package.
func TestMain(m *testing.M) {
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spanRecorder)))
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(metricReader)))

	if err := InitMetrics(); err != nil {
		panic(err)
	}

	os.Exit(m.Run())
}

func newTestRouter(t *testing.T, cfg config.CalcConfig) http.Handler {
	t.Helper()

	h, err := NewHandler(cfg)
	if err != nil {
		t.Fatalf("creating handler: %v", err)
	}

	r := chi.NewRouter()
	r.Use(observability.RequestIDMiddleware)
	h.RegisterRoutes(r)
	return r
}

func defaultCalcConfig() config.CalcConfig {
	return config.Default().Calc
}

func postJSON(t *testing.T, router http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return testutil.ExecuteRequest(testutil.NewJSONRequest(http.MethodPost, path, body), router)
}

func createSession(t *testing.T, router http.Handler) SessionResponse {
	t.Helper()
	w := postJSON(t, router, "/calculator/sessions", "")
	testutil.CheckResponseCode(t, http.StatusCreated, w.Code)

	var resp SessionResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)
	return resp
}

func TestEvaluateReturnsRoundedResult(t *testing.T) {
	router := newTestRouter(t, defaultCalcConfig())

	w := postJSON(t, router, "/calculator/evaluate", `{"expression":"1/3"}`)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var resp EvaluateResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)

	if resp.Display != "0.3333" {
		t.Fatalf("expected display %q, got %q", "0.3333", resp.Display)
	}
	if resp.Result == nil || *resp.Result != 0.3333 {
		t.Fatalf("expected result 0.3333, got %v", resp.Result)
	}
	if resp.State != "ok" {
		t.Fatalf("expected state %q, got %q", "ok", resp.State)
	}
}

func TestEvaluateFailureStatesAreResults(t *testing.T) {
	tests := []struct {
		expression string
		display    string
		state      string
	}{
		{expression: "1++", display: "Error", state: "rejected"},
		{expression: "2(3)", display: "ExError", state: "unparsable"},
		{expression: "5/0", display: "+Inf", state: "non_finite"},
	}

	router := newTestRouter(t, defaultCalcConfig())
	for _, tc := range tests {
		t.Run(tc.expression, func(t *testing.T) {
			w := postJSON(t, router, "/calculator/evaluate", `{"expression":"`+tc.expression+`"}`)
			testutil.CheckResponseCode(t, http.StatusOK, w.Code)

			var resp EvaluateResponse
			testutil.DecodeJSONBody(t, w.Body, &resp)

			if resp.Display != tc.display {
				t.Fatalf("expected display %q, got %q", tc.display, resp.Display)
			}
			if resp.State != tc.state {
				t.Fatalf("expected state %q, got %q", tc.state, resp.State)
			}
			if resp.Result != nil {
				t.Fatalf("expected no result, got %v", *resp.Result)
			}
		})
	}
}

func TestEvaluateStrictNonFinite(t *testing.T) {
	cfg := defaultCalcConfig()
	cfg.StrictNonFinite = true
	router := newTestRouter(t, cfg)

	w := postJSON(t, router, "/calculator/evaluate", `{"expression":"5/0"}`)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var resp EvaluateResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)
	if resp.Display != "Error" {
		t.Fatalf("expected display %q, got %q", "Error", resp.Display)
	}
}

func TestEvaluateRejectsBadRequests(t *testing.T) {
	router := newTestRouter(t, defaultCalcConfig())

	for _, body := range []string{`{"expression":`, `{"expression":""}`} {
		w := postJSON(t, router, "/calculator/evaluate", body)
		testutil.CheckResponseCode(t, http.StatusBadRequest, w.Code)

		var resp map[string]string
		testutil.DecodeJSONBody(t, w.Body, &resp)
		if resp["error"] == "" {
			t.Fatalf("expected error message for body %q", body)
		}
	}
}

func TestSessionKeysAndHistory(t *testing.T) {
	router := newTestRouter(t, defaultCalcConfig())
	sess := createSession(t, router)

	if sess.Display != "0" {
		t.Fatalf("expected new session display %q, got %q", "0", sess.Display)
	}

	w := postJSON(t, router, "/calculator/sessions/"+sess.ID+"/keys", `{"keys":["(","1","+","2","="]}`)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var keys KeysResponse
	testutil.DecodeJSONBody(t, w.Body, &keys)

	if keys.Display != "3" {
		t.Fatalf("expected display %q, got %q", "3", keys.Display)
	}
	if len(keys.Steps) != 5 {
		t.Fatalf("expected 5 steps, got %d", len(keys.Steps))
	}
	if got := keys.Steps[3].Display; got != "(1+2" {
		t.Fatalf("expected step display %q, got %q", "(1+2", got)
	}
	if got := keys.Steps[4].State; got != "ok" {
		t.Fatalf("expected evaluate state %q, got %q", "ok", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/calculator/sessions/"+sess.ID+"/history", nil)
	w = testutil.ExecuteRequest(req, router)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var history HistoryResponse
	testutil.DecodeJSONBody(t, w.Body, &history)

	if len(history.Entries) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(history.Entries))
	}
	e := history.Entries[0]
	if e.Input != "(1+2" || e.Result == nil || *e.Result != 3 || e.Display != "3" {
		t.Fatalf("expected (1+2 -> 3, got %+v", e)
	}
}

func TestSessionHistoryWithNonFiniteResult(t *testing.T) {
	router := newTestRouter(t, defaultCalcConfig())
	sess := createSession(t, router)

	w := postJSON(t, router, "/calculator/sessions/"+sess.ID+"/keys", `{"keys":["1","/","0","="]}`)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	w = postJSON(t, router, "/calculator/sessions/"+sess.ID+"/keys", `{"keys":["AC","2","*","4","="]}`)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/calculator/sessions/"+sess.ID+"/history", nil)
	w = testutil.ExecuteRequest(req, router)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var history HistoryResponse
	testutil.DecodeJSONBody(t, w.Body, &history)

	if len(history.Entries) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history.Entries))
	}

	inf := history.Entries[0]
	if inf.Input != "1/0" || inf.Result != nil || inf.Display != "+Inf" {
		t.Fatalf("expected 1/0 -> +Inf without result, got %+v", inf)
	}

	finite := history.Entries[1]
	if finite.Input != "2*4" || finite.Result == nil || *finite.Result != 8 {
		t.Fatalf("expected 2*4 -> 8, got %+v", finite)
	}
}

func TestSessionKeysUnknownKeyStopsBatch(t *testing.T) {
	router := newTestRouter(t, defaultCalcConfig())
	sess := createSession(t, router)

	w := postJSON(t, router, "/calculator/sessions/"+sess.ID+"/keys", `{"keys":["7","x","8"]}`)
	testutil.CheckResponseCode(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/calculator/sessions/"+sess.ID, nil)
	w = testutil.ExecuteRequest(req, router)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var got SessionResponse
	testutil.DecodeJSONBody(t, w.Body, &got)
	if got.Display != "7" {
		t.Fatalf("expected keys before the bad one to stay applied, got %q", got.Display)
	}
}

func TestSessionKeysEmptyBatch(t *testing.T) {
	router := newTestRouter(t, defaultCalcConfig())
	sess := createSession(t, router)

	w := postJSON(t, router, "/calculator/sessions/"+sess.ID+"/keys", `{"keys":[]}`)
	testutil.CheckResponseCode(t, http.StatusBadRequest, w.Code)
}

func TestSessionKeysCreateSpanPerKey(t *testing.T) {
	router := newTestRouter(t, defaultCalcConfig())
	sess := createSession(t, router)

	w := postJSON(t, router, "/calculator/sessions/"+sess.ID+"/keys", `{"keys":["6","×","7","="]}`)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var parent sdktrace.ReadOnlySpan
	for _, s := range spanRecorder.Ended() {
		if s.Name() == "calculator.keys" && hasAttr(s.Attributes(), "calculator.session.id", sess.ID) {
			parent = s
		}
	}
	if parent == nil {
		t.Fatal("expected a calculator.keys span for the session")
	}

	children := 0
	var evalSpan sdktrace.ReadOnlySpan
	for _, s := range spanRecorder.Ended() {
		if s.Parent().SpanID() != parent.SpanContext().SpanID() {
			continue
		}
		children++
		if s.Name() == "calculator.key.3" {
			evalSpan = s
		}
	}
	if children != 4 {
		t.Fatalf("expected 4 key spans, got %d", children)
	}
	if evalSpan == nil || !hasAttr(evalSpan.Attributes(), "calculator.display", "42") {
		t.Fatal("expected evaluate span to carry the display 42")
	}
}

func TestSessionNotFound(t *testing.T) {
	router := newTestRouter(t, defaultCalcConfig())

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/calculator/sessions/missing", nil),
		httptest.NewRequest(http.MethodDelete, "/calculator/sessions/missing", nil),
		httptest.NewRequest(http.MethodGet, "/calculator/sessions/missing/history", nil),
		testutil.NewJSONRequest(http.MethodPost, "/calculator/sessions/missing/keys", `{"keys":["1"]}`),
	} {
		w := testutil.ExecuteRequest(req, router)
		testutil.CheckResponseCode(t, http.StatusNotFound, w.Code)
	}
}

func TestDeleteSession(t *testing.T) {
	router := newTestRouter(t, defaultCalcConfig())
	sess := createSession(t, router)

	req := httptest.NewRequest(http.MethodDelete, "/calculator/sessions/"+sess.ID, nil)
	w := testutil.ExecuteRequest(req, router)
	testutil.CheckResponseCode(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/calculator/sessions/"+sess.ID, nil)
	w = testutil.ExecuteRequest(req, router)
	testutil.CheckResponseCode(t, http.StatusNotFound, w.Code)
}

func TestEvaluationMetricsByState(t *testing.T) {
	router := newTestRouter(t, defaultCalcConfig())

	before := evaluationCount(t, "rejected")
	postJSON(t, router, "/calculator/evaluate", `{"expression":"1++"}`)
	postJSON(t, router, "/calculator/evaluate", `{"expression":"()"}`)

	if got := evaluationCount(t, "rejected") - before; got != 2 {
		t.Fatalf("expected 2 more rejected evaluations, got %d", got)
	}
}

func evaluationCount(t *testing.T, state string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := metricReader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collecting metrics: %v", err)
	}

	var total int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != "calculator.evaluations.total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("unexpected data type %T", m.Data)
			}
			for _, dp := range sum.DataPoints {
				if v, ok := dp.Attributes.Value("state"); ok && v.AsString() == state {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func hasAttr(attrs []attribute.KeyValue, key, want string) bool {
	for _, kv := range attrs {
		if string(kv.Key) == key && kv.Value.AsString() == want {
			return true
		}
	}
	return false
}
