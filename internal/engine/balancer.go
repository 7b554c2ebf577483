package engine

import "strings"

var closerFor = map[rune]rune{
	'(': ')',
	'[': ']',
	'{': '}',
}

// UnclosedClosers scans buf left to right and returns the closing brackets
// still owed, in the order they must be appended. A character only closes a
// bracket when it equals the expected closer on top of the stack, so stray
// closers are ignored.
func UnclosedClosers(buf string) []rune {
	var expected stack[rune]
	for _, r := range buf {
		if closer, ok := closerFor[r]; ok {
			expected.push(closer)
			continue
		}
		if top, ok := expected.peek(); ok && top == r {
			expected.pop()
		}
	}

	out := make([]rune, 0, expected.len())
	for {
		r, ok := expected.pop()
		if !ok {
			break
		}
		out = append(out, r)
	}
	return out
}

// CountUnclosed returns how many closers Balance would append.
func CountUnclosed(buf string) int {
	return len(UnclosedClosers(buf))
}

// Balance appends the missing closers to buf. It never removes or reorders
// existing characters.
func Balance(buf string) string {
	closers := UnclosedClosers(buf)
	if len(closers) == 0 {
		return buf
	}
	var b strings.Builder
	b.Grow(len(buf) + len(closers))
	b.WriteString(buf)
	for _, r := range closers {
		b.WriteRune(r)
	}
	return b.String()
}
