package engine

import (
	"math"
	"strconv"
	"strings"
)

// State is the terminal state of one evaluate run.
type State string

const (
	StateOK         State = "ok"
	StateNonFinite  State = "non_finite"
	StateRejected   State = "rejected"
	StateUnparsable State = "unparsable"
)

// Options configures an Evaluator.
type Options struct {
	// AllowFunctions enables the log function at the validator gate.
	// Without it a buffer built with the "log" key is rejected as Error.
	AllowFunctions bool
	// StrictNonFinite turns NaN and Inf results into ErrorText instead of
	// displaying them.
	StrictNonFinite bool
}

// Result describes one pass through the evaluate pipeline.
type Result struct {
	Input    string
	Balanced string
	Tree     Node
	Value    float64
	Rounded  float64
	Display  string
	State    State
	Err      error
}

// Recorded reports whether the result belongs in the history log.
func (r Result) Recorded() bool {
	return r.State == StateOK || r.State == StateNonFinite
}

// Evaluator runs raw buffers through balance, validation, parsing and
// reduction. It holds no per-call state and may be shared.
type Evaluator struct {
	validator *Validator
	opts      Options
}

// NewEvaluator returns an Evaluator configured by opts.
func NewEvaluator(opts Options) *Evaluator {
	return &Evaluator{
		validator: NewValidator(ValidatorOptions{AllowFunctions: opts.AllowFunctions}),
		opts:      opts,
	}
}

// Evaluate reduces raw to a display text. It never returns an error
// directly: failures are reported through Result.State and Result.Err.
func (e *Evaluator) Evaluate(raw string) Result {
	res := Result{Input: raw}

	res.Balanced = Balance(NormalizeGlyphs(raw))

	if err := e.validator.Validate(res.Balanced).Err(); err != nil {
		res.State = StateRejected
		res.Display = ErrorText
		res.Err = err
		return res
	}

	tree, err := Parse(strings.ReplaceAll(res.Balanced, "√", "sqrt"))
	if err != nil {
		res.State = StateUnparsable
		res.Display = ParseErrorText
		res.Err = err
		return res
	}
	res.Tree = tree

	res.Value = tree.Eval()
	res.Rounded = Round(res.Value)
	res.State = StateOK
	if math.IsNaN(res.Value) || math.IsInf(res.Value, 0) {
		res.State = StateNonFinite
		if e.opts.StrictNonFinite {
			res.State = StateRejected
			res.Display = ErrorText
			res.Err = ErrNonFinite
			return res
		}
	}
	res.Display = FormatResult(res.Rounded)
	return res
}

// Round keeps four decimal places, rounding half away from zero.
func Round(v float64) float64 {
	return math.Round(10000*v) / 10000
}

// FormatResult renders v in its shortest decimal form, e.g. "11" or "0.3333".
func FormatResult(v float64) string {
	if v == 0 {
		// Drop the sign of negative zero.
		v = 0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
