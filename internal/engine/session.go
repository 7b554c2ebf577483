package engine

// Session is one calculator: the input buffer, its history and the result
// of the last evaluation. A Session is not safe for concurrent use.
type Session struct {
	buffer    string
	history   *History
	evaluator *Evaluator
	last      *Result
}

// NewSession returns a session showing the placeholder buffer. A nil
// evaluator allows functions, so every key ParseKey accepts can evaluate.
func NewSession(ev *Evaluator) *Session {
	if ev == nil {
		ev = NewEvaluator(Options{AllowFunctions: true})
	}
	return &Session{
		buffer:    Placeholder,
		history:   NewHistory(),
		evaluator: ev,
	}
}

// Buffer returns the current display text.
func (s *Session) Buffer() string { return s.buffer }

// History returns the session's history log.
func (s *Session) History() *History { return s.history }

// LastResult returns the most recent evaluation, if any.
func (s *Session) LastResult() (Result, bool) {
	if s.last == nil {
		return Result{}, false
	}
	return *s.last, true
}

// OnDigitOrDot handles a digit or decimal point key.
func (s *Session) OnDigitOrDot(sym string) string {
	s.buffer = AppendDigitOrDot(s.buffer, sym)
	return s.buffer
}

// OnOperand handles operator, bracket, function and sign keys.
func (s *Session) OnOperand(op string) string {
	if op == SignToggle {
		s.buffer = ToggleSign(s.buffer)
		return s.buffer
	}
	s.buffer = AppendOperand(s.buffer, op)
	return s.buffer
}

// OnClear resets the buffer. History is kept.
func (s *Session) OnClear() string {
	s.buffer = Reset()
	return s.buffer
}

// OnEvaluate evaluates the buffer and replaces it with the display text.
func (s *Session) OnEvaluate() string {
	return s.Evaluate().Display
}

// Evaluate is OnEvaluate returning the full pipeline result.
func (s *Session) Evaluate() Result {
	res := s.evaluator.Evaluate(s.buffer)
	if res.Recorded() {
		s.history.Record(res.Input, res.Value)
	}
	s.buffer = res.Display
	s.last = &res
	return res
}

// Apply dispatches ev to the matching operation and returns the new display.
func (s *Session) Apply(ev Event) string {
	switch ev.Kind {
	case EventDigit:
		return s.OnDigitOrDot(ev.Symbol)
	case EventOperand:
		return s.OnOperand(ev.Symbol)
	case EventClear:
		return s.OnClear()
	case EventEvaluate:
		return s.OnEvaluate()
	}
	return s.buffer
}

// Press parses key and applies it.
func (s *Session) Press(key string) (string, error) {
	ev, err := ParseKey(key)
	if err != nil {
		return s.buffer, err
	}
	return s.Apply(ev), nil
}
