package calculator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"pocket-calculator/internal/config"
	"pocket-calculator/internal/engine"
	"pocket-calculator/internal/handlers"
	"pocket-calculator/internal/observability"
	"pocket-calculator/internal/sessions"
)

// tracer is the calculator's dedicated OpenTelemetry tracer.
var tracer = otel.Tracer("calculator")

// Handler serves the calculator endpoints. Sessions live in memory only.
type Handler struct {
	evaluator *engine.Evaluator
	store     *sessions.Store
	upgrader  websocket.Upgrader
}

// NewHandler builds the evaluator and session store described by cfg.
// InitMetrics must have been called first.
func NewHandler(cfg config.CalcConfig) (*Handler, error) {
	ev := engine.NewEvaluator(engine.Options{
		AllowFunctions:  cfg.Functions,
		StrictNonFinite: cfg.StrictNonFinite,
	})

	store, err := sessions.New(cfg.MaxSessions, ev, sessions.WithEvictCallback(func(id string) {
		sessionsGauge.Add(context.Background(), -1)
		observability.Logger.Debug("calculator session dropped", zap.String("session_id", id))
	}))
	if err != nil {
		return nil, err
	}

	return &Handler{
		evaluator: ev,
		store:     store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}, nil
}

// ---------------------------------------------------------------------------
// Handler: stateless evaluation
// ---------------------------------------------------------------------------

// Evaluate handles POST /calculator/evaluate. Rejected and unparsable
// expressions are still 200 responses: "Error" and "ExError" are results.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)
	requestID := observability.RequestIDFromContext(ctx)

	ctx, span := tracer.Start(ctx, "calculator.evaluate",
		trace.WithAttributes(
			attribute.String("request.id", requestID),
		),
	)
	defer span.End()

	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "evaluate", "invalid request body", err, http.StatusBadRequest, w)
		return
	}
	if req.Expression == "" {
		observability.RecordError(ctx, span, logger, errorCounter, "evaluate", "expression is empty", errors.New("empty expression"), http.StatusBadRequest, w)
		return
	}

	start := time.Now()
	res := h.evaluator.Evaluate(req.Expression)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0 // ms

	traceEvaluation(span, res, elapsed)
	recordEvaluation(ctx, "evaluate", res, elapsed)
	logEvaluation(logger, "evaluate", res, elapsed, zap.String("request_id", requestID))

	handlers.WriteJSON(w, http.StatusOK, newEvaluateResponse(res))
}

// ---------------------------------------------------------------------------
// Handlers: session lifecycle
// ---------------------------------------------------------------------------

// CreateSession handles POST /calculator/sessions.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)

	sess := h.store.Create()
	sessionsGauge.Add(ctx, 1)

	trace.SpanFromContext(ctx).SetAttributes(attribute.String("calculator.session.id", sess.ID))
	logger.Info("calculator session created",
		zap.String("session_id", sess.ID),
		zap.String("request_id", observability.RequestIDFromContext(ctx)),
	)

	handlers.WriteJSON(w, http.StatusCreated, SessionResponse{ID: sess.ID, Display: sess.Display()})
}

// GetSession handles GET /calculator/sessions/{id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r, "get_session")
	if !ok {
		return
	}
	handlers.WriteJSON(w, http.StatusOK, SessionResponse{ID: sess.ID, Display: sess.Display()})
}

// DeleteSession handles DELETE /calculator/sessions/{id}.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := h.store.Delete(id); err != nil {
		observability.RecordError(ctx, trace.SpanFromContext(ctx), observability.LoggerWithTrace(ctx), errorCounter, "delete_session", "session not found", err, http.StatusNotFound, w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// History handles GET /calculator/sessions/{id}/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r, "history")
	if !ok {
		return
	}

	var entries []engine.HistoryEntry
	sess.Do(func(calc *engine.Session) { entries = calc.History().Entries() })

	handlers.WriteJSON(w, http.StatusOK, newHistoryResponse(sess.ID, entries))
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request, opName string) (*sessions.Session, bool) {
	ctx := r.Context()
	sess, err := h.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		observability.RecordError(ctx, trace.SpanFromContext(ctx), observability.LoggerWithTrace(ctx), errorCounter, opName, "session not found", err, http.StatusNotFound, w)
		return nil, false
	}
	return sess, true
}

// ---------------------------------------------------------------------------
// Handler: key sequences (one child span per key)
// ---------------------------------------------------------------------------

// Keys handles POST /calculator/sessions/{id}/keys. It applies a sequence of
// keypad labels to the session in order. The batch holds the session lock,
// so concurrent batches never interleave. An unknown key aborts the batch;
// keys before it stay applied.
func (h *Handler) Keys(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r, "keys")
	if !ok {
		return
	}

	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx).With(zap.String("session_id", sess.ID))
	requestID := observability.RequestIDFromContext(ctx)

	// Parent span for the whole batch
	ctx, span := tracer.Start(ctx, "calculator.keys",
		trace.WithAttributes(
			attribute.String("request.id", requestID),
			attribute.String("calculator.session.id", sess.ID),
		),
	)
	defer span.End()

	var req KeysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "keys", "invalid request body", err, http.StatusBadRequest, w)
		return
	}

	if len(req.Keys) == 0 {
		observability.RecordError(ctx, span, logger, errorCounter, "keys", "no keys provided", fmt.Errorf("keys array is empty"), http.StatusBadRequest, w)
		return
	}

	span.SetAttributes(attribute.Int("calculator.keys_count", len(req.Keys)))

	steps := make([]KeyStep, 0, len(req.Keys))
	var display string
	var failed error

	sess.Do(func(calc *engine.Session) {
		for i, key := range req.Keys {
			step, err := applyKey(ctx, logger, calc, i, key)
			if err != nil {
				failed = err
				return
			}
			steps = append(steps, step)
		}
		display = calc.Buffer()
	})

	if failed != nil {
		span.SetStatus(codes.Error, fmt.Sprintf("failed at step %d", len(steps)))
		observability.RecordError(ctx, span, logger, errorCounter, "keys", failed.Error(), failed, http.StatusBadRequest, w)
		return
	}

	span.AddEvent("keys.complete", trace.WithAttributes(
		attribute.String("display", display),
		attribute.Int("total_steps", len(steps)),
	))
	span.SetStatus(codes.Ok, "")

	handlers.WriteJSON(w, http.StatusOK, KeysResponse{ID: sess.ID, Display: display, Steps: steps})
}

// applyKey applies one keypad label inside its own child span. An "=" key
// is timed and recorded as an evaluation.
func applyKey(ctx context.Context, logger *zap.Logger, calc *engine.Session, index int, key string) (KeyStep, error) {
	ctx, span := tracer.Start(ctx, fmt.Sprintf("calculator.key.%d", index),
		trace.WithAttributes(
			attribute.Int("calculator.key.index", index),
			attribute.String("calculator.key", key),
			attribute.String("calculator.buffer.before", calc.Buffer()),
		),
	)
	defer span.End()

	ev, err := engine.ParseKey(key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return KeyStep{}, fmt.Errorf("step %d: %w", index, err)
	}

	recordKeystroke(ctx, ev.Kind)
	step := KeyStep{Key: key}

	if ev.Kind == engine.EventEvaluate {
		start := time.Now()
		res := calc.Evaluate()
		elapsed := float64(time.Since(start).Microseconds()) / 1000.0

		traceEvaluation(span, res, elapsed)
		recordEvaluation(ctx, "session", res, elapsed)
		logEvaluation(logger, "session", res, elapsed, zap.Int("step", index))

		step.Display = res.Display
		step.State = string(res.State)
		return step, nil
	}

	step.Display = calc.Apply(ev)
	span.SetAttributes(attribute.String("calculator.buffer.after", step.Display))
	span.SetStatus(codes.Ok, "")
	return step, nil
}

// ---------------------------------------------------------------------------
// Shared instrumentation
// ---------------------------------------------------------------------------

func traceEvaluation(span trace.Span, res engine.Result, elapsedMs float64) {
	span.SetAttributes(
		attribute.String("calculator.input", res.Input),
		attribute.String("calculator.balanced", res.Balanced),
		attribute.String("calculator.state", string(res.State)),
		attribute.String("calculator.display", res.Display),
	)
	if res.Tree != nil {
		span.SetAttributes(attribute.String("calculator.tree", res.Tree.String()))
	}

	if res.Err != nil {
		// Rejections are user input errors, not failures of the request.
		span.AddEvent("evaluation.rejected", trace.WithAttributes(
			attribute.String("error", res.Err.Error()),
		))
		return
	}

	span.AddEvent("evaluation.complete", trace.WithAttributes(
		attribute.Float64("result", res.Value),
		attribute.Float64("duration_ms", elapsedMs),
	))
	span.SetStatus(codes.Ok, "")
}

func logEvaluation(logger *zap.Logger, opName string, res engine.Result, elapsedMs float64, fields ...zap.Field) {
	fields = append(fields,
		zap.String("operation", opName),
		zap.String("input", res.Input),
		zap.String("balanced", res.Balanced),
		zap.String("state", string(res.State)),
		zap.String("display", res.Display),
		zap.Float64("duration_ms", elapsedMs),
	)
	if res.Err != nil {
		logger.Info("calculator evaluation rejected", append(fields, zap.Error(res.Err))...)
		return
	}
	logger.Info("calculator evaluation completed", append(fields, zap.Float64("result", res.Value))...)
}
