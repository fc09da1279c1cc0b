// Package markdown parses the narrow inline grammar used in chat
// replies: blank lines, bullet lines, and **bold** spans. It is not a
// general markdown engine.
package markdown

import "strings"

// LineKind classifies a parsed line.
type LineKind string

const (
	Blank  LineKind = "blank"
	Bullet LineKind = "bullet"
	Text   LineKind = "text"
)

// Segment is one run of text with a single style.
type Segment struct {
	Text string `json:"text"`
	Bold bool   `json:"bold,omitempty"`
}

// Line is one parsed line of chat text.
type Line struct {
	Kind     LineKind  `json:"kind"`
	Segments []Segment `json:"segments,omitempty"`
}

// Parse splits chat text into structured lines.
func Parse(text string) []Line {
	var lines []Line
	for _, raw := range strings.Split(text, "\n") {
		lines = append(lines, parseLine(raw))
	}
	return lines
}

func parseLine(raw string) Line {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Line{Kind: Blank}
	}

	kind := Text
	content := raw
	if rest, ok := bulletContent(trimmed); ok {
		kind = Bullet
		content = rest
	}
	return Line{Kind: kind, Segments: Segments(content)}
}

func bulletContent(line string) (string, bool) {
	for _, marker := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, marker) {
			return strings.TrimPrefix(line, marker), true
		}
	}
	return "", false
}

// Segments splits a line on ** markers into alternating plain and bold
// runs. An unclosed marker is treated as literal text.
func Segments(text string) []Segment {
	var segs []Segment
	for text != "" {
		open := strings.Index(text, "**")
		if open < 0 {
			segs = append(segs, Segment{Text: text})
			break
		}
		closing := strings.Index(text[open+2:], "**")
		if closing < 0 {
			segs = append(segs, Segment{Text: text})
			break
		}
		if open > 0 {
			segs = append(segs, Segment{Text: text[:open]})
		}
		bold := text[open+2 : open+2+closing]
		if bold != "" {
			segs = append(segs, Segment{Text: bold, Bold: true})
		}
		text = text[open+2+closing+2:]
	}
	return segs
}
