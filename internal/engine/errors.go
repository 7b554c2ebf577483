package engine

import (
	"errors"
	"fmt"
)

// Failure classes of the evaluate operation. Each one maps to a distinct
// display text so callers can tell them apart.
var (
	ErrRejectedSyntax = errors.New("rejected syntax")
	ErrUnparsable     = errors.New("unparsable expression")
	ErrNonFinite      = errors.New("non-finite result")
	ErrUnknownKey     = errors.New("unknown key")
)

// SyntaxError reports which validator stage rejected a buffer.
type SyntaxError struct {
	Stage ValidationStage
	Input string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s gate rejected %q", e.Stage, e.Input)
}

func (e *SyntaxError) Unwrap() error { return ErrRejectedSyntax }

// ParseError reports where the parser gave up on a validated buffer.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Pos, e.Msg)
}

func (e *ParseError) Unwrap() error { return ErrUnparsable }
