package engine

import "strings"

// Display texts the buffer can hold besides an expression.
const (
	Placeholder    = "0"
	ErrorText      = "Error"
	ParseErrorText = "ExError"
)

// isPlaceholder reports whether a typed digit should replace buf instead of
// extending it.
func isPlaceholder(buf string) bool {
	switch buf {
	case Placeholder, ErrorText, ParseErrorText:
		return true
	}
	return false
}

// AppendDigitOrDot adds a digit or decimal point to buf. No validation is
// done here; malformed numbers are caught when the buffer is evaluated.
func AppendDigitOrDot(buf, sym string) string {
	if isPlaceholder(buf) {
		return sym
	}
	return buf + sym
}

// AppendOperand adds an operator, bracket or function to buf. Functions are
// expanded to their call form so the user only has to type the argument.
func AppendOperand(buf, op string) string {
	switch op {
	case "√":
		op = "√("
	case "log":
		op = "log("
	}
	if buf == Placeholder {
		return op
	}
	return buf + op
}

// ToggleSign flips the sign of the whole buffer text, not of a single operand.
func ToggleSign(buf string) string {
	if strings.HasPrefix(buf, "-") {
		return buf[1:]
	}
	return "-" + buf
}

// Reset returns the initial buffer.
func Reset() string {
	return Placeholder
}

var glyphReplacer = strings.NewReplacer("×", "*", "÷", "/")

// NormalizeGlyphs maps the display-only operator glyphs back to ASCII.
func NormalizeGlyphs(s string) string {
	return glyphReplacer.Replace(s)
}
