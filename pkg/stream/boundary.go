package stream

import "regexp"

// boundaryPattern matches the structural signature of answer or tool
// invocation content beginning inside the reasoning stream:
//
//  1. Anchor: start of text or a newline
//  2. Whitespace: any indentation
//  3. Optional fence: ``` plus an optional bare language tag and whitespace
//  4. Trigger: an angle-bracket tag opening, `<name` followed by whitespace
//     or an immediate `>`
//
// This is a structural heuristic, not content-aware parsing.
var boundaryPattern = regexp.MustCompile("(?:^|\n)\\s*(?:```[a-zA-Z0-9]*\\s*)?<[a-zA-Z0-9_\\-]+(?:\\s|>)")

// scanBoundary searches the trailing window plus the newly arrived reasoning
// text for the answer boundary. On a match it computes the absolute split
// offset into the accumulated reasoning and flips the session into answering
// mode permanently; otherwise it rolls the window forward. Called only while
// the session is still in thinking mode.
func (a *accumulator) scanBoundary(delta string) {
	if delta == "" {
		return
	}
	text := a.window + delta
	if loc := boundaryPattern.FindStringIndex(text); loc != nil {
		// The anchor newline belongs to the reasoning, not the answer.
		idx := loc[0]
		if text[idx] == '\n' {
			idx++
		}
		// The scanned text is the tail of the accumulated reasoning, so the
		// match offset converts to an absolute index by subtracting the
		// scanned length.
		offset := len(a.reason) - len(text)
		a.splitIndex = offset + idx
		a.answering = true
		a.window = ""
		return
	}
	if len(text) > a.windowSize {
		text = text[len(text)-a.windowSize:]
	}
	a.window = text
}
