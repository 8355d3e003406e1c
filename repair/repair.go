// Package repair recovers structured data from raw language model
// output. Models routinely wrap JSON in markdown fences, prepend or
// append prose, emit trailing commas, or truncate mid-token; Parse
// tolerates all of these and degrades to a caller-supplied fallback
// when recovery is impossible. The package never returns an error.
package repair

import (
	"encoding/json"
	"regexp"
	"strings"
)

// maxPasses bounds the truncate-and-rescan loop. Every pass strictly
// shortens the working text, so this is a safety net, not a tuning knob.
const maxPasses = 32

var trailingComma = regexp.MustCompile(`,\s*([}\]])`)

// Parse extracts a structurally valid JSON document from raw. Already
// valid input is returned byte-for-byte unchanged. On unrecoverable
// input the fallback is returned instead; Parse never returns an error.
func Parse(raw string, fallback json.RawMessage) json.RawMessage {
	if json.Valid([]byte(raw)) {
		return json.RawMessage(raw)
	}

	text := Preprocess(raw)
	if text == "" {
		return fallback
	}
	if json.Valid([]byte(text)) {
		return json.RawMessage(text)
	}

	for range maxPasses {
		res := scan(text)

		// Stray prose inside the document: cut back to the last
		// position known to be structurally clean and go around again.
		if res.strayStart >= 0 {
			cut := res.lastSafe()
			if cut <= 0 {
				return fallback
			}
			text = dropTrailingSeparators(text[:cut])
			continue
		}

		// Generation stopped inside an open string.
		if res.inString {
			if res.valuePos {
				// A truncated value keeps what was generated.
				text += `"`
			} else {
				// A truncated key is useless: drop it.
				text = dropTrailingSeparators(text[:res.stringStart])
			}
			continue
		}

		// Generation stopped inside a bare literal (tru, nul, 12.):
		// drop the partial token and whatever key introduced it.
		if res.danglingLiteral >= 0 {
			text = dropTrailingSeparators(text[:res.danglingLiteral])
			continue
		}

		// Close every still-open bracket in reverse order.
		text = dropTrailingSeparators(text)
		var b strings.Builder
		b.WriteString(text)
		for i := len(res.stack) - 1; i >= 0; i-- {
			if res.stack[i] == '{' {
				b.WriteByte('}')
			} else {
				b.WriteByte(']')
			}
		}
		text = b.String()

		if json.Valid([]byte(text)) {
			return json.RawMessage(text)
		}
		return fallback
	}

	return fallback
}

// Decode parses raw into T via Parse, returning fallback when the text
// cannot be recovered or does not unmarshal into T.
func Decode[T any](raw string, fallback T) T {
	parsed := Parse(raw, nil)
	if parsed == nil {
		return fallback
	}
	var v T
	if err := json.Unmarshal(parsed, &v); err != nil {
		return fallback
	}
	return v
}

// Preprocess strips markdown code fences, isolates the substring from
// the first opening brace to the last closing brace, and removes
// trailing commas before closing brackets.
func Preprocess(raw string) string {
	s := strings.ReplaceAll(raw, "```json", "\n")
	s = strings.ReplaceAll(s, "```JSON", "\n")
	s = strings.ReplaceAll(s, "```", "\n")

	start := strings.IndexByte(s, '{')
	if start < 0 {
		start = strings.IndexByte(s, '[')
	}
	if start >= 0 {
		end := strings.LastIndexByte(s, '}')
		if end < start {
			end = strings.LastIndexByte(s, ']')
		}
		if end > start {
			s = s[start : end+1]
		} else {
			s = s[start:]
		}
	}

	s = trailingComma.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}

// scanResult captures everything one character-by-character pass learns
// about the structural health of the text.
type scanResult struct {
	stack    []byte // still-open { and [ in opening order
	inString bool   // scanner ended inside an unterminated string

	stringStart int  // opening quote index of the unterminated string
	valuePos    bool // unterminated string sits in value position

	lastClosedString  int // index just past the last cleanly closed quote
	lastClosedBracket int // index just past the last structurally closed bracket
	lastLiteralEnd    int // index just past the last complete bare literal

	strayStart      int // start of a run that is neither structure nor literal
	danglingLiteral int // start of an incomplete literal cut off at end of input
}

// lastSafe returns the furthest position known to end on a complete
// string, bracket, or literal.
func (r *scanResult) lastSafe() int {
	cut := r.lastClosedString
	if r.lastClosedBracket > cut {
		cut = r.lastClosedBracket
	}
	if r.lastLiteralEnd > cut {
		cut = r.lastLiteralEnd
	}
	return cut
}

func isLiteralByte(c byte) bool {
	return c >= '0' && c <= '9' ||
		c >= 'a' && c <= 'z' ||
		c >= 'A' && c <= 'Z' ||
		c == '-' || c == '+' || c == '.' || c == '_'
}

var numberPattern = regexp.MustCompile(`^-?\d+(\.\d+)?([eE][+-]?\d+)?$`)

// completeLiteral reports whether run is a full JSON bare literal.
func completeLiteral(run string) bool {
	switch run {
	case "true", "false", "null":
		return true
	}
	return numberPattern.MatchString(run)
}

// literalPrefix reports whether run could grow into a valid literal if
// generation had continued (truncation rather than prose).
func literalPrefix(run string) bool {
	for _, word := range []string{"true", "false", "null"} {
		if strings.HasPrefix(word, run) {
			return true
		}
	}
	// Numbers with a trailing dot or exponent marker.
	trimmed := strings.TrimRight(run, ".eE+-")
	return trimmed != run && numberPattern.MatchString(trimmed)
}

// scan walks the text once, tracking bracket nesting, string state, and
// the positions of the last cleanly closed tokens. It stops early when
// it finds stray prose, since the caller truncates and rescans anyway.
func scan(s string) scanResult {
	res := scanResult{
		stringStart:       -1,
		lastClosedString:  -1,
		lastClosedBracket: -1,
		lastLiteralEnd:    -1,
		strayStart:        -1,
		danglingLiteral:   -1,
	}

	var stack []byte
	inString := false
	escaped := false
	lastSig := byte(0) // last significant structural character

	top := func() byte {
		if len(stack) == 0 {
			return 0
		}
		return stack[len(stack)-1]
	}

	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
				res.lastClosedString = i + 1
				lastSig = '"'
			}
			continue
		}

		switch c {
		case ' ', '\t', '\n', '\r':
			// skip
		case '"':
			inString = true
			res.stringStart = i
			res.valuePos = lastSig == ':' || lastSig == '[' ||
				(lastSig == ',' && top() == '[')
		case '{', '[':
			stack = append(stack, c)
			lastSig = c
		case '}', ']':
			open := byte('{')
			if c == ']' {
				open = '['
			}
			if top() != open {
				// Unbalanced closer: treat as stray text.
				res.strayStart = i
				res.stack = stack
				return res
			}
			stack = stack[:len(stack)-1]
			res.lastClosedBracket = i + 1
			lastSig = c
		case ',', ':':
			lastSig = c
		default:
			if !isLiteralByte(c) {
				res.strayStart = i
				res.stack = stack
				return res
			}
			start := i
			for i+1 < len(s) && isLiteralByte(s[i+1]) {
				i++
			}
			run := s[start : i+1]
			switch {
			case completeLiteral(run):
				res.lastLiteralEnd = i + 1
				lastSig = 'v'
			case i+1 == len(s) && literalPrefix(run):
				res.danglingLiteral = start
			default:
				res.strayStart = start
				res.stack = stack
				return res
			}
		}
	}

	res.stack = stack
	res.inString = inString
	return res
}

// dropTrailingSeparators removes a dangling comma, or a dangling
// "key": pair left behind when its value was dropped, from the end of
// the text.
func dropTrailingSeparators(s string) string {
	s = strings.TrimRight(s, " \t\r\n")

	if strings.HasSuffix(s, ":") {
		s = strings.TrimRight(s[:len(s)-1], " \t\r\n")
		// Remove the key string preceding the colon.
		if strings.HasSuffix(s, `"`) {
			if open := openingQuote(s); open >= 0 {
				s = strings.TrimRight(s[:open], " \t\r\n")
			}
		}
	}

	s = strings.TrimSuffix(s, ",")
	return strings.TrimRight(s, " \t\r\n")
}

// openingQuote finds the opening quote index of a string that ends at
// the final byte of s, accounting for escaped quotes.
func openingQuote(s string) int {
	for i := len(s) - 2; i >= 0; i-- {
		if s[i] != '"' {
			continue
		}
		// Count preceding backslashes; an even count means unescaped.
		backslashes := 0
		for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
			backslashes++
		}
		if backslashes%2 == 0 {
			return i
		}
	}
	return -1
}
