package core

import "time"

// MessageKind classifies a ParsedMessage emitted by the Log Parser.
type MessageKind string

const (
	MessageSystem          MessageKind = "system"
	MessageUser            MessageKind = "user"
	MessageAssistant       MessageKind = "assistant"
	MessageToolCallStarted MessageKind = "tool_call_started"
	MessageToolCallDone    MessageKind = "tool_call_completed"
	MessageThinking        MessageKind = "thinking"
	MessageResult          MessageKind = "result"
	MessageRawLine         MessageKind = "raw_line"
)

// ParsedMessage is the Log Parser's output unit: a pure function of
// the byte stream plus a one-line rollover buffer. It carries no
// reference to the lane or run it came from — the caller supplies
// that context when bridging into the event bus.
type ParsedMessage struct {
	Kind      MessageKind
	Content   string
	Timestamp time.Time
	// Metadata carries kind-specific extras: tool name/arguments for
	// tool_call_started, duration/is_error for result.
	Metadata map[string]interface{}
}

// IsNoise reports whether line should be dropped without advancing
// the activity clock: empty, box-drawing-only, dots-only,
// percentage-only, or a single spinner glyph. These patterns are
// emitted by CLI progress indicators and would otherwise mask a real
// stall.
func IsNoise(line string) bool {
	if line == "" {
		return true
	}
	allDots := true
	allBoxDrawing := true
	for _, r := range line {
		if r != '.' {
			allDots = false
		}
		if !isBoxDrawingRune(r) && r != ' ' {
			allBoxDrawing = false
		}
	}
	if allDots || allBoxDrawing {
		return true
	}
	if isPercentageOnly(line) {
		return true
	}
	if isSpinnerGlyph(line) {
		return true
	}
	return false
}

func isBoxDrawingRune(r rune) bool {
	return r >= 0x2500 && r <= 0x257F
}

func isPercentageOnly(line string) bool {
	trimmed := line
	if len(trimmed) == 0 || trimmed[len(trimmed)-1] != '%' {
		return false
	}
	digits := trimmed[:len(trimmed)-1]
	if digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

var spinnerGlyphs = map[rune]bool{
	'⠋': true, '⠙': true, '⠹': true, '⠸': true, '⠼': true, '⠴': true,
	'⠦': true, '⠧': true, '⠇': true, '⠏': true,
	'|': true, '/': true, '-': true, '\\': true,
}

func isSpinnerGlyph(line string) bool {
	runes := []rune(line)
	if len(runes) != 1 {
		return false
	}
	return spinnerGlyphs[runes[0]]
}
