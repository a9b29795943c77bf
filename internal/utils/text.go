package utils

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"go.lsp.dev/protocol"
)

// FullRange spans the whole text, from the first character of the first line
// to the last character of the last line.
func FullRange(text string) protocol.Range {
	lines := strings.Split(text, "\n")
	lastLine := lines[len(lines)-1]

	return protocol.Range{
		Start: protocol.Position{Line: 0, Character: 0},
		End: protocol.Position{
			Line:      uint32(len(lines) - 1),
			Character: uint32(utf16Len(lastLine)),
		},
	}
}

// OffsetAt converts an LSP position (UTF-16 code units) into a byte offset.
// Positions past the end of a line clamp to the line end and positions past
// the last line clamp to the end of the text.
func OffsetAt(text string, position protocol.Position) int {
	offset := 0
	for line := uint32(0); line < position.Line; line++ {
		next := strings.IndexByte(text[offset:], '\n')
		if next < 0 {
			return len(text)
		}
		offset += next + 1
	}

	lineEnd := strings.IndexByte(text[offset:], '\n')
	if lineEnd < 0 {
		lineEnd = len(text)
	} else {
		lineEnd += offset
	}
	if lineEnd > offset && text[lineEnd-1] == '\r' {
		lineEnd--
	}

	units := uint32(0)
	for offset < lineEnd && units < position.Character {
		r, size := utf8.DecodeRuneInString(text[offset:])
		units += uint32(utf16.RuneLen(r))
		offset += size
	}

	return offset
}

// TextInRange returns the text covered by rng. Reversed ranges are treated
// as empty.
func TextInRange(text string, rng protocol.Range) string {
	start := OffsetAt(text, rng.Start)
	end := OffsetAt(text, rng.End)
	if end < start {
		return ""
	}

	return text[start:end]
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
