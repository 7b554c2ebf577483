package engine

import (
	"regexp"
	"strings"
)

// ValidationStage names the gate that rejected a buffer.
type ValidationStage int

const (
	StageNone ValidationStage = iota
	StageCharset
	StageShape
)

func (s ValidationStage) String() string {
	switch s {
	case StageCharset:
		return "charset"
	case StageShape:
		return "shape"
	default:
		return "none"
	}
}

// ValidationResult is the outcome of Validator.Validate.
type ValidationResult struct {
	OK    bool
	Stage ValidationStage
	Input string
}

// Err returns nil for an accepted buffer and a *SyntaxError otherwise.
func (r ValidationResult) Err() error {
	if r.OK {
		return nil
	}
	return &SyntaxError{Stage: r.Stage, Input: r.Input}
}

// ValidatorOptions controls which tokens the gate lets through.
type ValidatorOptions struct {
	// AllowFunctions admits the "log" function name in addition to √.
	AllowFunctions bool
}

// Validator is the two-stage regex gate run before parsing. The shape
// pattern approximates a well-formed expression; it is not a grammar, and
// the parser still rejects some buffers it accepts.
type Validator struct {
	charset *regexp.Regexp
	shape   *regexp.Regexp
}

// NewValidator compiles the gate patterns for opts.
func NewValidator(opts ValidatorOptions) *Validator {
	chars := `[0-9\-*+\s().,√/%]`
	operand := `[0-9√]`
	if opts.AllowFunctions {
		chars = `(?:` + chars + `|log)`
		operand = `(?:[0-9√]|log)`
	}

	charset := `^` + chars + `+$`
	shape := strings.Join([]string{
		`^[(]?[-]?`,
		operand + `+`,
		`[)(]??`,
		`(?:[)(]?(?:[-+/*%]?[0-9]?[)(]?` + operand + `)?(?:[.,][0-9]+)?[)]?)*`,
		`$`,
	}, "")

	return &Validator{
		charset: regexp.MustCompile(charset),
		shape:   regexp.MustCompile(shape),
	}
}

// Validate runs both stages against buf.
func (v *Validator) Validate(buf string) ValidationResult {
	if !v.charset.MatchString(buf) {
		return ValidationResult{Stage: StageCharset, Input: buf}
	}
	if !v.shape.MatchString(buf) {
		return ValidationResult{Stage: StageShape, Input: buf}
	}
	return ValidationResult{OK: true, Input: buf}
}
