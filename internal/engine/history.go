package engine

import "sort"

// HistoryEntry is one row of the history log.
type HistoryEntry struct {
	Input  string
	Result float64
}

// History maps the raw text of an evaluated buffer to its latest unrounded
// result. Re-evaluating the same text overwrites the entry.
type History struct {
	entries map[string]float64
}

// NewHistory returns an empty log.
func NewHistory() *History {
	return &History{entries: make(map[string]float64)}
}

// Record stores result under input.
func (h *History) Record(input string, result float64) {
	h.entries[input] = result
}

// Lookup returns the last result recorded for input.
func (h *History) Lookup(input string) (float64, bool) {
	v, ok := h.entries[input]
	return v, ok
}

// Len returns the number of distinct inputs recorded.
func (h *History) Len() int {
	return len(h.entries)
}

// Entries returns a snapshot sorted by input text.
func (h *History) Entries() []HistoryEntry {
	out := make([]HistoryEntry, 0, len(h.entries))
	for input, result := range h.entries {
		out = append(out, HistoryEntry{Input: input, Result: result})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Input < out[j].Input })
	return out
}
