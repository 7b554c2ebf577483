package engine

import "fmt"

// EventKind tags a keypad event.
type EventKind int

const (
	EventDigit EventKind = iota
	EventOperand
	EventClear
	EventEvaluate
)

func (k EventKind) String() string {
	switch k {
	case EventDigit:
		return "digit"
	case EventOperand:
		return "operand"
	case EventClear:
		return "clear"
	case EventEvaluate:
		return "evaluate"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is one key press forwarded by a front end.
type Event struct {
	Kind   EventKind
	Symbol string
}

// SignToggle is the operand symbol that flips the buffer sign.
const SignToggle = "±"

// ParseKey maps a keypad label to its event.
func ParseKey(key string) (Event, error) {
	switch key {
	case "0", "1", "2", "3", "4", "5", "6", "7", "8", "9", ".":
		return Event{Kind: EventDigit, Symbol: key}, nil
	case "(", ")", "+", "-", "*", "/", "%", "×", "÷", "√", "log":
		return Event{Kind: EventOperand, Symbol: key}, nil
	case SignToggle, "+/-":
		return Event{Kind: EventOperand, Symbol: SignToggle}, nil
	case "AC", "C":
		return Event{Kind: EventClear}, nil
	case "=":
		return Event{Kind: EventEvaluate}, nil
	}
	return Event{}, fmt.Errorf("%w: %q", ErrUnknownKey, key)
}
