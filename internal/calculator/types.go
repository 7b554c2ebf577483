package calculator

import (
	"math"

	"pocket-calculator/internal/engine"
)

// EvaluateRequest is the JSON body for POST /calculator/evaluate.
type EvaluateRequest struct {
	Expression string `json:"expression"`
}

// EvaluateResponse reports one pass through the evaluation pipeline.
// Result is omitted when the expression failed or is not finite; Display
// always holds what a keypad would show.
type EvaluateResponse struct {
	Expression string   `json:"expression"`
	Balanced   string   `json:"balanced"`
	Display    string   `json:"display"`
	Result     *float64 `json:"result,omitempty"`
	State      string   `json:"state"`
	Error      string   `json:"error,omitempty"`
}

func newEvaluateResponse(res engine.Result) EvaluateResponse {
	resp := EvaluateResponse{
		Expression: res.Input,
		Balanced:   res.Balanced,
		Display:    res.Display,
		State:      string(res.State),
	}
	if res.State == engine.StateOK && !math.IsNaN(res.Rounded) && !math.IsInf(res.Rounded, 0) {
		v := res.Rounded
		resp.Result = &v
	}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}
	return resp
}

// SessionResponse describes a session's display.
type SessionResponse struct {
	ID      string `json:"id"`
	Display string `json:"display"`
}

// KeysRequest is the JSON body for POST /calculator/sessions/{id}/keys.
type KeysRequest struct {
	Keys []string `json:"keys"` // keypad labels, e.g. "7", "+", "√", "AC", "="
}

// KeyStep records the display after one key.
type KeyStep struct {
	Key     string `json:"key"`
	Display string `json:"display"`
	State   string `json:"state,omitempty"` // set for "=" only
}

// KeysResponse is the JSON response for POST /calculator/sessions/{id}/keys.
type KeysResponse struct {
	ID      string    `json:"id"`
	Display string    `json:"display"`
	Steps   []KeyStep `json:"steps"`
}

// HistoryItem is one history row. Result is omitted for NaN and Inf, which
// JSON cannot carry; Display always holds the rounded text.
type HistoryItem struct {
	Input   string   `json:"input"`
	Result  *float64 `json:"result,omitempty"`
	Display string   `json:"display"`
}

// HistoryResponse lists a session's history log.
type HistoryResponse struct {
	ID      string        `json:"id"`
	Entries []HistoryItem `json:"entries"`
}

func newHistoryResponse(id string, entries []engine.HistoryEntry) HistoryResponse {
	items := make([]HistoryItem, 0, len(entries))
	for _, e := range entries {
		item := HistoryItem{
			Input:   e.Input,
			Display: engine.FormatResult(engine.Round(e.Result)),
		}
		if !math.IsNaN(e.Result) && !math.IsInf(e.Result, 0) {
			v := e.Result
			item.Result = &v
		}
		items = append(items, item)
	}
	return HistoryResponse{ID: id, Entries: items}
}

// KeyMessage is the websocket reply to one key.
type KeyMessage struct {
	Key     string `json:"key"`
	Display string `json:"display,omitempty"`
	State   string `json:"state,omitempty"`
	Error   string `json:"error,omitempty"`
}
